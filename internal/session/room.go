// Package session holds the in-memory signaling rooms that pair one doctor
// and one patient per appointment for a video consultation.
package session

import (
	"context"
	"sync"

	"github.com/medisync/teleclinic/internal/auth"
	"github.com/medisync/teleclinic/internal/domain"
	"github.com/medisync/teleclinic/internal/service/scheduling"
)

type PeerRole string

const (
	// Caller is whoever joins an empty room first, regardless of being the
	// doctor or the patient. The caller initiates the WebRTC offer.
	PeerRoleCaller   PeerRole = "caller"
	PeerRoleAnswerer PeerRole = "answerer"
)

// Signal kinds relayed verbatim between the two peers.
const (
	SignalOffer        = "offer"
	SignalAnswer       = "answer"
	SignalIceCandidate = "ice-candidate"
)

// Event is one message pushed to a connected peer.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// Peer is one connected participant. Send is fire-and-forget: the room never
// waits for the peer to acknowledge.
type Peer interface {
	ID() string
	Send(event Event)
}

// Store is the slice of the appointment store the room manager needs.
type Store interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	UpdateConsultNotes(ctx context.Context, id int64, notes domain.ConsultNotes) (*domain.Appointment, error)
}

type member struct {
	peer     Peer
	identity auth.Identity
	role     PeerRole
}

type room struct {
	members []*member // join order: members[0] is the caller
}

func (r *room) find(peerID string) *member {
	for _, m := range r.members {
		if m.peer.ID() == peerID {
			return m
		}
	}
	return nil
}

func (r *room) other(peerID string) *member {
	for _, m := range r.members {
		if m.peer.ID() != peerID {
			return m
		}
	}
	return nil
}

// Manager owns every active room, keyed by appointment id. It is constructed
// once at process start and injected into the connection handler; all room
// mutations are serialized by its mutex.
type Manager struct {
	verifier auth.Verifier
	store    Store

	mu    sync.Mutex
	rooms map[int64]*room
}

func NewManager(verifier auth.Verifier, store Store) *Manager {
	return &Manager{
		verifier: verifier,
		store:    store,
		rooms:    make(map[int64]*room),
	}
}

// Join authenticates the token, authorizes the identity against the
// appointment, and seats the peer. The first peer into an empty room is the
// caller, the second the answerer; on the second join both peers receive each
// other's presence. A third join fails ErrRoomFull without touching the room.
func (m *Manager) Join(ctx context.Context, appointmentID int64, token string, peer Peer) (PeerRole, error) {
	identity, err := m.verifier.Verify(token)
	if err != nil {
		return "", err
	}

	appointment, err := m.store.GetByID(ctx, appointmentID)
	if err != nil {
		return "", err
	}
	if !scheduling.ParticipantAllowed(appointment, identity) {
		return "", domain.ErrAccessDenied
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[appointmentID]
	if !ok {
		r = &room{}
		m.rooms[appointmentID] = r
	}
	if len(r.members) >= 2 {
		return "", domain.ErrRoomFull
	}

	role := PeerRoleCaller
	if len(r.members) == 1 {
		role = PeerRoleAnswerer
	}
	joined := &member{peer: peer, identity: identity, role: role}
	r.members = append(r.members, joined)

	if len(r.members) == 2 {
		existing := r.members[0]
		existing.peer.Send(Event{Name: "user-connected", Data: peer.ID()})
		peer.Send(Event{Name: "user-connected", Data: existing.peer.ID()})
	}
	return role, nil
}

// Relay forwards a signaling payload to the other room member only, never
// back to the sender. Absent peer or unknown kind is a silent no-op.
func (m *Manager) Relay(appointmentID int64, fromPeerID, kind string, payload any) {
	switch kind {
	case SignalOffer, SignalAnswer, SignalIceCandidate:
	default:
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[appointmentID]
	if !ok || r.find(fromPeerID) == nil {
		return
	}
	if other := r.other(fromPeerID); other != nil {
		other.peer.Send(Event{Name: kind, Data: payload})
	}
}

// UpdateNotes persists the consultation fields and broadcasts the stored
// values to every room member, the sender included, so both UIs render the
// same single source of truth.
func (m *Manager) UpdateNotes(ctx context.Context, appointmentID int64, notes domain.ConsultNotes) (*domain.Appointment, error) {
	current, err := m.store.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !current.NotesEditable() {
		return nil, domain.ErrNotesLocked
	}

	updated, err := m.store.UpdateConsultNotes(ctx, appointmentID, notes)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[appointmentID]; ok {
		for _, member := range r.members {
			member.peer.Send(Event{Name: "updateData", Data: domain.ConsultNotes{
				Symptoms:     updated.Symptoms,
				Diagnosis:    updated.Diagnosis,
				Prescription: updated.Prescription,
			}})
		}
	}
	return updated, nil
}

// Leave removes the peer, tells the remaining member, and discards the room
// once it is empty. Safe to call for a peer that never joined.
func (m *Manager) Leave(appointmentID int64, peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[appointmentID]
	if !ok || r.find(peerID) == nil {
		return
	}

	remaining := r.members[:0]
	for _, member := range r.members {
		if member.peer.ID() != peerID {
			remaining = append(remaining, member)
		}
	}
	r.members = remaining

	if len(r.members) == 0 {
		delete(m.rooms, appointmentID)
		return
	}
	for _, member := range r.members {
		member.peer.Send(Event{Name: "user-disconnected", Data: peerID})
	}
}

// RoomSize reports the member count for an appointment's room.
func (m *Manager) RoomSize(appointmentID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[appointmentID]; ok {
		return len(r.members)
	}
	return 0
}
