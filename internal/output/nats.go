package output

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rbright/uplink/internal/state"
)

// DefaultSubject is the NATS subject used when none is configured.
const DefaultSubject = "uplink.reply"

// publisher is the subset of *nats.Conn the sink needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes every snapshot as JSON on one subject.
type NATS struct {
	conn    publisher
	subject string
	close   func()
}

// ConnectNATS dials url and returns a sink bound to subject.
func ConnectNATS(url string, subject string, timeout time.Duration, logger *slog.Logger) (*NATS, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	conn, err := nats.Connect(url,
		nats.Name("uplink"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if logger != nil && err != nil {
				logger.Warn("nats disconnected", "error", err.Error())
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	if logger != nil {
		logger.Info("connected to NATS", "url", conn.ConnectedUrlRedacted(), "subject", subjectOrDefault(subject))
	}

	sink := newNATS(conn, subject)
	sink.close = func() {
		_ = conn.Drain()
		conn.Close()
	}
	return sink, nil
}

func newNATS(conn publisher, subject string) *NATS {
	return &NATS{conn: conn, subject: subjectOrDefault(subject)}
}

func subjectOrDefault(subject string) string {
	if s := strings.TrimSpace(subject); s != "" {
		return s
	}
	return DefaultSubject
}

// Publish encodes snap and hands it to the connection's outbound buffer.
func (n *NATS) Publish(_ context.Context, snap state.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", n.subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (n *NATS) Close() {
	if n == nil || n.close == nil {
		return
	}
	n.close()
}
