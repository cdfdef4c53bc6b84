package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/studio-engine/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// typeConnected is the first message on every live stream
	typeConnected = "connected"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleSessionWS streams booking status changes of one visitor session
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	// Subscribe first so nothing published after the snapshot is missed
	sub := s.hub.Subscribe(events.SessionTopic(token))
	defer sub.Close()

	snapshot, err := s.sessions.Booking(r.Context(), token)
	if err != nil {
		respondServiceError(w, err, "open live session", nil)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}

	slog.Info("session websocket connected", "session_token", maskKey(token))

	hello, err := events.New(typeConnected, snapshot)
	if err == nil {
		err = sendEvent(conn, hello)
	}
	if err != nil {
		conn.Close()
		return
	}

	streamEvents(conn, sub)
	slog.Info("session websocket disconnected", "session_token", maskKey(token))
}

// handleStaffFeedWS streams new bookings and consultations to staff tools
func (s *Server) handleStaffFeedWS(w http.ResponseWriter, r *http.Request) {
	client := ClientFromContext(r.Context())

	sub := s.hub.Subscribe(events.TopicStaff)
	defer sub.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}

	slog.Info("staff feed connected", "client", client.Name)

	hello, err := events.New(typeConnected, map[string]string{"client": client.Name})
	if err == nil {
		err = sendEvent(conn, hello)
	}
	if err != nil {
		conn.Close()
		return
	}

	streamEvents(conn, sub)
	slog.Info("staff feed disconnected", "client", client.Name)
}

// streamEvents forwards sub to conn until either side goes away, then closes conn
func streamEvents(conn *websocket.Conn, sub *events.Subscription) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()
	defer conn.Close()

	// Client frames are ignored; a read error means the peer left
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := sendEvent(conn, ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}

func sendEvent(conn *websocket.Conn, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to marshal live event", "type", ev.Type, "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send live event", "type", ev.Type, "error", err)
		return err
	}
	return nil
}
