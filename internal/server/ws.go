package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/posehold/internal/log"
)

const (
	// writeWait is the time allowed to write one message to a client.
	writeWait = 2 * time.Second
	// minPushInterval caps pushes to a client at about 20 per second.
	minPushInterval = 50 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// SessionFeed pushes a session snapshot to WebSocket clients whenever it
// changes. Each client gets its own writer; a slow client only ever misses
// intermediate snapshots.
type SessionFeed struct {
	session Session
}

// NewSessionFeed creates a SessionFeed.
func NewSessionFeed(s Session) *SessionFeed {
	return &SessionFeed{session: s}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SessionFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade error", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Clients do not send anything; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snap := h.session.Snapshot()
	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(snap); err != nil {
			log.Debug("websocket client gone", "err", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(minPushInterval):
		}

		snap, err = h.session.NextSnapshot(ctx, snap.Version)
		if err != nil {
			return
		}
	}
}
