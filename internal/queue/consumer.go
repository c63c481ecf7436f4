// Package queue carries cancellation events over RabbitMQ: the event
// payload, the publisher called after a cancellation commits, and the
// background consumer that mails the party affected by each one.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/coordenador-app/booking-api/internal/mailer"
	"github.com/coordenador-app/booking-api/internal/metrics"
	"github.com/coordenador-app/booking-api/internal/model"
)

// BookingCanceledQueue is the durable queue carrying cancellation events.
const BookingCanceledQueue = "booking.canceled"

// UserStore resolves notification recipients.
type UserStore interface {
	FindByID(ctx context.Context, id uint64) (*model.User, error)
}

// CancellationConsumer connects to RabbitMQ, declares the
// booking.canceled queue (durable) and mails the counterparty of each
// cancellation: the professor when the student canceled, the student
// when the professor or an admin did.  Mail failures are logged and the
// message is rejected without requeue; they never block or reverse the
// cancellation that produced the event.
type CancellationConsumer struct {
	URL    string
	Users  UserStore
	Mailer mailer.Sender
	Log    *zap.Logger
}

// Start runs the consume loop with reconnect backoff.  It returns only
// when ctx is canceled; broker errors are logged and retried.
func (c *CancellationConsumer) Start(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("cancellation consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := c.consumeLoop(ctx, conn); err != nil {
			c.Log.Warn("cancellation consumer: loop ended, reconnecting", zap.Error(err))
			_ = conn.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func (c *CancellationConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("cancellation consumer: set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(BookingCanceledQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(BookingCanceledQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.Log.Error("cancellation consumer: handle message failed", zap.Error(err))
				metrics.IncNotification("error")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			metrics.IncNotification("sent")
			_ = d.Ack(false)
		}
	}
}

func (c *CancellationConsumer) handleMessage(ctx context.Context, body []byte) error {
	var ev BookingCanceledEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	// Notify the other party: the one who did not cancel.
	recipientID := ev.ProfessorID
	if ev.CanceledByProfessor {
		recipientID = ev.StudentID
	}
	user, err := c.Users.FindByID(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient %d: %w", recipientID, err)
	}

	subject := "Meeting canceled"
	text := fmt.Sprintf(
		"Hello! The meeting scheduled on Coordenador.app for %s at %s has been canceled.\n\nCancellation reason: %s",
		FormatDateBR(ev.Date), ev.TimeSlot, ev.CancelReason)

	if err := c.Mailer.Send(user.Email, subject, text); err != nil {
		return fmt.Errorf("send mail to %s: %w", user.Email, err)
	}
	c.Log.Info("cancellation notification sent",
		zap.String("event_id", ev.EventID), zap.Uint64("booking_id", ev.BookingID),
		zap.Uint64("recipient_id", recipientID))
	return nil
}

// FormatDateBR renders a canonical YYYY-MM-DD date as DD/MM/YYYY for
// mail bodies.  Malformed input is returned unchanged.
func FormatDateBR(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("02/01/2006")
}
