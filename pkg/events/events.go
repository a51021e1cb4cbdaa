package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vnlease/vnlease-api/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopEventBus is used when NATS is disabled (local development without a
// broker). Publishes are logged at debug level and dropped.
type NoopEventBus struct{}

func NewNoopEventBus() *NoopEventBus {
	return &NoopEventBus{}
}

func (n *NoopEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event dropped (no bus)", "subject", subject)
	return nil
}

func (n *NoopEventBus) Subscribe(string, func(msg *Message)) error              { return nil }
func (n *NoopEventBus) QueueSubscribe(string, string, func(msg *Message)) error { return nil }
func (n *NoopEventBus) Close() error                                            { return nil }

// Event subjects
const (
	IndividualRegistered = "individual.registered"
	CompanyRegistered    = "company.registered"
	CompanySwitched      = "company.switched"
	BusinessVerified     = "business.verified"

	VehicleCreated = "vehicle.created"
	VehicleUpdated = "vehicle.updated"
	VehicleDeleted = "vehicle.deleted"

	PaymentCompleted = "payment.completed"
	PaymentFailed    = "payment.failed"
	ContactRevealed  = "contact.revealed"

	PasswordResetRequested = "password.reset.requested"
)

// Event payloads
type IndividualRegisteredEvent struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CompanyRegisteredEvent struct {
	CompanyID      int64     `json:"company_id"`
	BusinessNumber string    `json:"business_number"`
	CompanyName    string    `json:"company_name"`
	CreatedAt      time.Time `json:"created_at"`
}

type CompanySwitchedEvent struct {
	FromCompanyID int64     `json:"from_company_id"`
	ToCompanyID   int64     `json:"to_company_id"`
	SwitchedAt    time.Time `json:"switched_at"`
}

type BusinessVerifiedEvent struct {
	BusinessNumber string    `json:"business_number"`
	VerifiedAt     time.Time `json:"verified_at"`
}

type VehicleCreatedEvent struct {
	VehicleID     int64  `json:"vehicle_id"`
	CompanyID     int64  `json:"company_id"`
	VehicleNumber string `json:"vehicle_number"`
	Region        string `json:"region"`
	MonthlyFee    int64  `json:"monthly_fee"`
}

type VehicleUpdatedEvent struct {
	VehicleID int64 `json:"vehicle_id"`
	CompanyID int64 `json:"company_id"`
	Available bool  `json:"available"`
}

type VehicleDeletedEvent struct {
	VehicleID int64 `json:"vehicle_id"`
	CompanyID int64 `json:"company_id"`
}

type PaymentCompletedEvent struct {
	PaymentID int64     `json:"payment_id"`
	UserID    int64     `json:"user_id"`
	VehicleID int64     `json:"vehicle_id"`
	Amount    int64     `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
}

type PaymentFailedEvent struct {
	PaymentID int64  `json:"payment_id"`
	UserID    int64  `json:"user_id"`
	VehicleID int64  `json:"vehicle_id"`
	Reason    string `json:"reason"`
}

type ContactRevealedEvent struct {
	UserID    int64     `json:"user_id"`
	VehicleID int64     `json:"vehicle_id"`
	CompanyID int64     `json:"company_id"`
	ViewedAt  time.Time `json:"viewed_at"`
}

type PasswordResetRequestedEvent struct {
	UserID      int64     `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
}
