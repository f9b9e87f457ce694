package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"github.com/nats-io/nats.go"
)

// Event actions, appended to "<prefix>.employee." to form the subject.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event is the JSON payload published for every record change.
type Event struct {
	ID         string               `json:"event_id"`
	Type       string               `json:"type"`
	EmployeeID string               `json:"employee_id"`
	Fields     []string             `json:"fields,omitempty"`
	Employee   *domain.EmployeeView `json:"employee,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publishes record lifecycle events on core NATS subjects.
type NATSPublisher struct {
	conn   conn
	prefix string
	now    func() time.Time
}

// Connect dials NATS and returns a publisher with the given subject prefix.
func Connect(url, prefix string) (*NATSPublisher, *nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("employee-records"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewNATSPublisher(nc, prefix), nc, nil
}

func NewNATSPublisher(c conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: c, prefix: prefix, now: time.Now}
}

// Subject returns the subject an action is published on.
func (p *NATSPublisher) Subject(action string) string {
	return p.prefix + ".employee." + action
}

func (p *NATSPublisher) PublishEmployeeCreated(ctx context.Context, e *domain.Employee) error {
	view := domain.NewEmployeeView(*e)
	return p.publish(ActionCreated, Event{EmployeeID: e.EmployeeID, Employee: &view})
}

func (p *NATSPublisher) PublishEmployeeUpdated(ctx context.Context, employeeID string, fields []string) error {
	return p.publish(ActionUpdated, Event{EmployeeID: employeeID, Fields: fields})
}

func (p *NATSPublisher) PublishEmployeeDeleted(ctx context.Context, employeeID string) error {
	return p.publish(ActionDeleted, Event{EmployeeID: employeeID})
}

func (p *NATSPublisher) publish(action string, evt Event) error {
	evt.ID = uuid.NewString()
	evt.Type = "employee." + action
	evt.OccurredAt = p.now().UTC()

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", evt.Type, err)
	}
	subject := p.Subject(action)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// NoopPublisher drops every event. It is used when NATS_URL is unset.
type NoopPublisher struct{}

func (NoopPublisher) PublishEmployeeCreated(context.Context, *domain.Employee) error { return nil }

func (NoopPublisher) PublishEmployeeUpdated(context.Context, string, []string) error { return nil }

func (NoopPublisher) PublishEmployeeDeleted(context.Context, string) error { return nil }
