package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sstraus/tuicommander/internal/hubcore"
)

// catchUpBytes bounds how much backlog a freshly attached stream replays,
// per spec.md §4.L.
const catchUpBytes = 64 * 1024

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleSessionStream implements the WS session-streaming protocol: refuse
// unknown sessions with 404 before upgrading, replay the last catchUpBytes
// of output, forward live output frames, and write inbound frames to the
// PTY. The connection auto-unsubscribes (GCing the forwarder) on close.
func (s *Server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sess, ok := s.deps.Sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, hubcore.ErrSessionNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session", id, "error", err)
		return
	}
	defer conn.Close()

	if backlog, _ := sess.Ring.ReadLast(catchUpBytes); len(backlog) > 0 {
		if err := conn.WriteMessage(websocket.BinaryMessage, backlog); err != nil {
			return
		}
	}

	ch, unsubscribe := s.deps.Orchestrator.Subscribe(sess)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if _, writeErr := s.deps.Orchestrator.Write(sess, data); writeErr != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case chunk, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return
			}
		}
	}
}
