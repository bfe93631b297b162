package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// handleStream upgrades to a websocket and writes the current snapshot, then
// every published snapshot, as JSON text frames. A slow client skips
// intermediate snapshots but always receives the newest. Client frames are
// read only to notice the connection closing.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, snaps := s.ctrl.Subscribe(4)
	defer s.ctrl.Unsubscribe(id)
	log := s.log.With("subscriber", id, "remote", r.RemoteAddr)
	log.Info("stream client connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(s.PingInterval)
	defer ping.Stop()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				log.Debug("stream write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			log.Info("stream client disconnected")
			return
		case <-r.Context().Done():
			return
		}
	}
}
