// Package relay forwards verified Cloud Manager events to NATS subjects.
package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fivetwenty-io/cmapi/internal/constants"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/nats-io/nats.go"
)

// Headers set on relayed messages.
const (
	HeaderEventID    = "Cm-Event-Id"
	HeaderEventKind  = "Cm-Event-Kind"
	HeaderEventType  = "Cm-Event-Type"
	HeaderObjectType = "Cm-Object-Type"
	HeaderObjectURL  = "Cm-Object-Url"
)

// UnknownSubject is the subject suffix of events that could not be classified.
const UnknownSubject = "unknown"

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Publisher publishes raw event payloads to <prefix>.<event kind>.
type Publisher struct {
	conn   Conn
	prefix string
	logger cmapi.Logger

	mu     sync.RWMutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithSubjectPrefix overrides the default subject prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = strings.TrimSuffix(prefix, ".")
	}
}

// WithLogger sets the logger.
func WithLogger(logger cmapi.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher on an established connection.
func NewPublisher(conn Conn, opts ...Option) *Publisher {
	p := &Publisher{
		conn:   conn,
		prefix: constants.DefaultSubjectPrefix,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Connect dials the NATS server at url and returns a publisher that owns the connection.
func Connect(url string, opts ...Option) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name(constants.DefaultUserAgent))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	return NewPublisher(conn, opts...), nil
}

// Subject returns the subject events of kind are published to.
func (p *Publisher) Subject(kind cmapi.EventKind) string {
	return p.prefix + "." + kind.String()
}

// Publish relays a classified event. Its signature matches cmapi.EventCallback.
func (p *Publisher) Publish(ctx context.Context, event cmapi.Event, raw []byte) error {
	header := event.Header()

	msg := nats.NewMsg(p.Subject(event.Kind()))
	msg.Data = raw
	msg.Header.Set(HeaderEventKind, event.Kind().String())
	msg.Header.Set(HeaderEventType, header.Type)
	msg.Header.Set(HeaderObjectType, header.ObjectType)
	msg.Header.Set(HeaderObjectURL, event.ObjectURL())

	if header.ID != "" {
		msg.Header.Set(HeaderEventID, header.ID)
	}

	return p.publish(ctx, msg)
}

// PublishUnknown relays an event of an unknown kind. Its signature matches
// cmapi.UnknownEventCallback.
func (p *Publisher) PublishUnknown(ctx context.Context, envelope *cmapi.EventEnvelope) error {
	msg := nats.NewMsg(p.prefix + "." + UnknownSubject)
	msg.Data = envelope.Payload
	msg.Header.Set(HeaderEventType, envelope.EventType)
	msg.Header.Set(HeaderObjectType, envelope.ObjectType)

	return p.publish(ctx, msg)
}

func (p *Publisher) publish(ctx context.Context, msg *nats.Msg) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return constants.ErrRelayClosed
	}

	err := p.conn.PublishMsg(msg)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", msg.Subject, err)
	}

	// FlushWithContext requires a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, constants.ShortHTTPTimeout)
		defer cancel()
	}

	err = p.conn.FlushWithContext(ctx)
	if err != nil {
		return fmt.Errorf("flushing %s: %w", msg.Subject, err)
	}

	if p.logger != nil {
		p.logger.Debug("event relayed", map[string]interface{}{
			"subject": msg.Subject,
			"bytes":   len(msg.Data),
		})
	}

	return nil
}

// Close closes the underlying connection. Later publishes fail with ErrRelayClosed.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	p.conn.Close()
}
