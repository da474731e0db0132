// Package events publishes notification records about classification
// writes, queue drains and imports.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"detailinfra/internal/vehicle"
)

const (
	SubjectSaved    = "detail.classification.saved"
	SubjectQueued   = "detail.classification.queued"
	SubjectDrained  = "detail.queue.drained"
	SubjectImported = "detail.classification.imported"

	// SubjectAll matches every subject above.
	SubjectAll = "detail.>"
)

// Classification is emitted when a row is saved remotely or queued locally.
type Classification struct {
	Row     vehicle.Row `json:"row"`
	Actor   string      `json:"actor,omitempty"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

type Drained struct {
	Succeeded int       `json:"succeeded"`
	Remaining int       `json:"remaining"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

type Imported struct {
	Inserted int       `json:"inserted"`
	Queued   int       `json:"queued"`
	Rejected int       `json:"rejected"`
	Actor    string    `json:"actor,omitempty"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Publisher delivers an event to subscribers. Publishing is best effort;
// callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Discard drops every event. Used when NATS is not configured.
type Discard struct{}

func (Discard) Publish(context.Context, string, any) error { return nil }

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATS publishes JSON events with the caller's trace context in the
// message headers.
type NATS struct {
	nc *nats.Conn
}

// Connect dials url and names the connection after the service.
func Connect(url, name string) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return &NATS{nc: nc}, nil
}

func NewNATS(nc *nats.Conn) *NATS {
	return &NATS{nc: nc}
}

func (p *NATS) Publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return p.nc.PublishMsg(msg)
}

func (p *NATS) Conn() *nats.Conn { return p.nc }

// Close flushes pending messages and closes the connection.
func (p *NATS) Close() {
	if p.nc == nil {
		return
	}
	_ = p.nc.Drain()
}

// Message is a received event.
type Message struct {
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

// Subscribe delivers every message on subject to handler with the trace
// context extracted from its headers.
func Subscribe(nc *nats.Conn, subject string, handler func(context.Context, Message)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		handler(ctx, Message{Subject: msg.Subject, Data: json.RawMessage(msg.Data)})
	})
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Publish(_ context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.messages = append(r.messages, Message{Subject: subject, Data: data})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Subjects lists the subjects published so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	for i, m := range r.messages {
		out[i] = m.Subject
	}
	return out
}
