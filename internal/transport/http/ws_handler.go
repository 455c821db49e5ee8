package http

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// streamLeaderboard upgrades to a websocket and pushes the leaderboard of a quiz:
// once on connect, on every change, and every RefreshInterval as a fallback.
// Client messages are read only to notice disconnects.
func (h *Handler) streamLeaderboard(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "quizId")
	if err != nil {
		h.fail(w, r, "Invalid quiz id", err)
		return
	}
	updates, cancel, err := h.service.SubscribeLeaderboard(r.Context(), quizID)
	if err != nil {
		h.fail(w, r, "Failed to subscribe to leaderboard", err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	// the hijacked connection inherits the server's ReadTimeout
	_ = conn.SetReadDeadline(time.Time{})

	h.metrics.LeaderboardPeers.Inc()
	defer h.metrics.LeaderboardPeers.Dec()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := h.send(conn, "leaderboard", update); err != nil {
				return
			}
		case <-ticker.C:
			snapshot, err := h.service.Snapshot(r.Context(), quizID)
			if err != nil {
				_ = h.send(conn, "error", errorPayload{Message: err.Error()})
				continue
			}
			if err := h.send(conn, "leaderboard", snapshot); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, typ string, payload any) error {
	data, err := json.Marshal(outboundMessage[any]{Type: typ, Payload: payload})
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug("ws write error", zap.Error(err))
		return err
	}
	return nil
}
