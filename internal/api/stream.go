// internal/api/stream.go
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream pushes the /data document whenever a new snapshot has
// been published, checked at the stream interval. Clients cannot send
// anything; incoming messages are discarded.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log := s.logger.With("remote", conn.RemoteAddr().String())
	log.Debug("stream opened")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.StreamInterval)
	defer ticker.Stop()

	var (
		lastSeq uint64
		sent    bool
	)
	push := func() bool {
		snap, seq := s.store.Load()
		if sent && seq == lastSeq {
			return true
		}
		lastSeq, sent = seq, true

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(NewData(snap)); err != nil {
			log.Debug("stream write failed", "error", err)
			return false
		}
		return true
	}

	// current state right away, then only on change
	if !push() {
		return
	}

	for {
		select {
		case <-closed:
			log.Debug("stream closed by peer")
			return

		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(writeWait))
			return

		case <-ticker.C:
			if !push() {
				return
			}
		}
	}
}
