package email

import (
	"context"
	"fmt"

	"github.com/medisync/teleclinic/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.AppointmentEvent) error {
	fmt.Printf("send email about %s for appointment %d (doctor %d): %s\n", event.Type, event.AppointmentID, event.DoctorID, event.Message)
	return nil
}
