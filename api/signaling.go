package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/medisync/teleclinic/internal/domain"
	"github.com/medisync/teleclinic/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// SignalingHandler owns the long-lived websocket connections that carry the
// room protocol: join, WebRTC signaling relays, and consult-note edits.
type SignalingHandler struct {
	rooms *session.Manager
}

func NewSignalingHandler(rooms *session.Manager) *SignalingHandler {
	return &SignalingHandler{rooms: rooms}
}

func (h *SignalingHandler) Register(router *gin.RouterGroup) {
	router.GET("/ws", h.connect)
}

type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinPayload struct {
	AppointmentID int64  `json:"appointment_id"`
	Token         string `json:"token"`
}

type updateDataPayload struct {
	AppointmentID int64  `json:"appointment_id"`
	Symptoms      string `json:"symptoms"`
	Diagnosis     string `json:"diagnosis"`
	Prescription  string `json:"prescription"`
}

// wsPeer adapts one websocket connection to session.Peer. Sends go through a
// buffered channel drained by the write pump; a full buffer drops the event
// rather than blocking the room.
type wsPeer struct {
	id   string
	send chan session.Event
}

func (p *wsPeer) ID() string { return p.id }

func (p *wsPeer) Send(event session.Event) {
	select {
	case p.send <- event:
	default:
	}
}

func (h *SignalingHandler) connect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	peer := &wsPeer{
		id:   uuid.NewString(),
		send: make(chan session.Event, 256),
	}

	go writePump(conn, peer)
	h.readPump(c, conn, peer)
}

func writePump(conn *websocket.Conn, peer *wsPeer) {
	defer conn.Close()
	for event := range peer.send {
		if err := conn.WriteJSON(event); err != nil {
			break
		}
	}
}

// readPump decodes inbound envelopes and drives the room manager. Protocol
// errors are reported as error events on the same socket; the connection is
// only torn down when the read side fails.
func (h *SignalingHandler) readPump(c *gin.Context, conn *websocket.Conn, peer *wsPeer) {
	var joinedRoom int64

	defer func() {
		if joinedRoom != 0 {
			h.rooms.Leave(joinedRoom, peer.id)
		}
		close(peer.send)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			peer.Send(session.Event{Name: "error", Data: gin.H{"message": "malformed message"}})
			continue
		}

		switch msg.Event {
		case "joinAppointment":
			var payload joinPayload
			if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.AppointmentID == 0 {
				peer.Send(session.Event{Name: "error", Data: gin.H{"message": "appointment_id and token are required"}})
				continue
			}
			if joinedRoom != 0 {
				peer.Send(session.Event{Name: "error", Data: gin.H{"message": "already joined a room"}})
				continue
			}
			role, err := h.rooms.Join(c.Request.Context(), payload.AppointmentID, payload.Token, peer)
			if err != nil {
				peer.Send(session.Event{Name: "error", Data: gin.H{"message": joinErrorMessage(err)}})
				continue
			}
			joinedRoom = payload.AppointmentID
			peer.Send(session.Event{Name: "joined", Data: gin.H{"role": string(role)}})

		case session.SignalOffer, session.SignalAnswer, session.SignalIceCandidate:
			if joinedRoom == 0 {
				peer.Send(session.Event{Name: "error", Data: gin.H{"message": "join an appointment first"}})
				continue
			}
			h.rooms.Relay(joinedRoom, peer.id, msg.Event, msg.Data)

		case "updateData":
			if joinedRoom == 0 {
				peer.Send(session.Event{Name: "error", Data: gin.H{"message": "join an appointment first"}})
				continue
			}
			var payload updateDataPayload
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				peer.Send(session.Event{Name: "error", Data: gin.H{"message": "malformed updateData"}})
				continue
			}
			if payload.AppointmentID != 0 && payload.AppointmentID != joinedRoom {
				peer.Send(session.Event{Name: "error", Data: gin.H{"message": "appointment does not match joined room"}})
				continue
			}
			_, err := h.rooms.UpdateNotes(c.Request.Context(), joinedRoom, domain.ConsultNotes{
				Symptoms:     payload.Symptoms,
				Diagnosis:    payload.Diagnosis,
				Prescription: payload.Prescription,
			})
			if err != nil {
				peer.Send(session.Event{Name: "error", Data: gin.H{"message": err.Error()}})
			}

		case "leave":
			if joinedRoom != 0 {
				h.rooms.Leave(joinedRoom, peer.id)
				joinedRoom = 0
			}

		default:
			peer.Send(session.Event{Name: "error", Data: gin.H{"message": "unknown event"}})
		}
	}
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomFull):
		return "Room is full. Only doctor and patient are allowed."
	case errors.Is(err, domain.ErrAccessDenied), errors.Is(err, domain.ErrNotFound):
		return "Access denied or invalid token."
	default:
		return "Authentication failed or invalid token."
	}
}
