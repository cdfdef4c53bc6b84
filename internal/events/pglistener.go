package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// NotifyChannel is the Postgres channel the repository notifies on
const NotifyChannel = "studio_events"

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	listenerPingInterval = 90 * time.Second
)

// PGListener relays Postgres notifications on NotifyChannel to the staff topic
type PGListener struct {
	listener *pq.Listener
	pub      Publisher
}

// NewPGListener connects a LISTEN session using dsn
func NewPGListener(dsn string, pub Publisher) (*PGListener, error) {
	onEvent := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("postgres listener event", "event", int(ev), "error", err)
		}
	}

	listener := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, onEvent)
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", NotifyChannel, err)
	}

	return &PGListener{listener: listener, pub: pub}, nil
}

// Run relays notifications until ctx is cancelled
func (l *PGListener) Run(ctx context.Context) {
	slog.Info("postgres listener started", "channel", NotifyChannel)

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("postgres listener stopped")
			return
		case n := <-l.listener.Notify:
			// nil after a reconnect
			if n == nil {
				continue
			}
			l.relay(n.Extra)
		case <-ticker.C:
			if err := l.listener.Ping(); err != nil {
				slog.Warn("postgres listener ping failed", "error", err)
			}
		}
	}
}

func (l *PGListener) relay(payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		slog.Warn("invalid notification payload", "error", err)
		return
	}
	l.pub.Publish(TopicStaff, ev)
}

// HealthCheck pings the listener connection
func (l *PGListener) HealthCheck(ctx context.Context) error {
	return l.listener.Ping()
}

// Close stops listening and closes the connection
func (l *PGListener) Close() error {
	return l.listener.Close()
}
