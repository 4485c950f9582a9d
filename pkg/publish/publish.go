// Package publish broadcasts finished forecast reports to other services.
package publish

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/tirecast/log"
)

const (
	DefaultSubjectPrefix = "tirecast.reports"
	HeaderRequestID      = "Tirecast-Request-Id"
)

type (
	// Message is a report ready for publishing
	Message struct {
		Track     string
		RequestID string
		Payload   any
	}
	Publisher interface {
		Publish(ctx context.Context, msg Message) error
		Close()
	}

	noop struct{}

	NatsPublisher struct {
		conn   *nats.Conn
		l      *log.Logger
		prefix string
		owned  bool
	}
	Option func(*NatsPublisher)
)

// Noop returns a publisher that discards all messages
func Noop() Publisher {
	return noop{}
}

func (noop) Publish(context.Context, Message) error { return nil }
func (noop) Close()                                 {}

func WithLogger(l *log.Logger) Option {
	return func(p *NatsPublisher) {
		p.l = l
	}
}

func WithSubjectPrefix(prefix string) Option {
	return func(p *NatsPublisher) {
		p.prefix = prefix
	}
}

func NewNatsPublisher(conn *nats.Conn, opts ...Option) *NatsPublisher {
	ret := &NatsPublisher{
		conn:   conn,
		l:      log.Default().Named("publish"),
		prefix: DefaultSubjectPrefix,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Connect dials url and returns a publisher owning the connection
func Connect(url string, opts ...Option) (*NatsPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("tirecast"),
		nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	ret := NewNatsPublisher(conn, opts...)
	ret.owned = true
	ret.l.Info("connected to NATS", log.String("url", conn.ConnectedUrlRedacted()))
	return ret, nil
}

func (p *NatsPublisher) Subject(track string) string {
	return Subject(p.prefix, track)
}

func (p *NatsPublisher) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return err
	}
	m := nats.NewMsg(p.Subject(msg.Track))
	m.Data = data
	m.Header.Set("Content-Type", "application/json")
	if msg.RequestID != "" {
		m.Header.Set(HeaderRequestID, msg.RequestID)
	}
	if err := p.conn.PublishMsg(m); err != nil {
		p.l.Warn("could not publish report",
			log.String("subject", m.Subject), log.ErrorField(err))
		return err
	}
	p.l.Debug("report published",
		log.String("subject", m.Subject), log.Int("bytes", len(data)))
	return nil
}

// Close drains the connection if it was created by Connect
func (p *NatsPublisher) Close() {
	if p.owned {
		if err := p.conn.Drain(); err != nil {
			p.l.Warn("drain failed", log.ErrorField(err))
			p.conn.Close()
		}
	}
}

// Subject builds <prefix>.<slug> where slug is the lower case track name
// with every run of other characters replaced by a single dash.
func Subject(prefix, track string) string {
	return prefix + "." + Slug(track)
}

func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	ret := strings.TrimSuffix(b.String(), "-")
	if ret == "" {
		return "unknown"
	}
	return ret
}
