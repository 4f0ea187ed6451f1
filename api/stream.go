package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gregtusar/armadex/pkg/session"
	"github.com/sirupsen/logrus"
)

const (
	streamBuffer = 256
	writeWait    = 10 * time.Second
)

// handleStream upgrades to a WebSocket and pushes every session event until
// the client goes away. Events are dropped, not queued, for a slow client.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.logger.WithField("session_id", sess.ID())
	log.Info("Stream opened")

	events := make(chan session.Event, streamBuffer)
	unsubscribe := sess.Subscribe(func(ev session.Event) {
		select {
		case events <- ev:
		default:
			log.WithField("kind", ev.Kind).Warn("Stream buffer full, dropping event")
		}
	})
	defer unsubscribe()

	pingInterval := s.opts.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	pongWait := pingInterval * 2

	done := make(chan struct{})
	go s.readLoop(conn, pongWait, done, log)

	// Send the current state so a client does not wait for the first tick.
	if err := s.writeEvent(conn, session.Event{Kind: session.EventSession, SessionID: sess.ID(), Payload: sess.Info(), Time: s.clock.Now()}); err != nil {
		log.WithError(err).Debug("Stream write failed")
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Info("Stream closed")
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := s.writeEvent(conn, ev); err != nil {
				log.WithError(err).Debug("Stream write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.WithError(err).Debug("Ping failed")
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev session.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

// readLoop discards client frames; it exists to process pongs and notice
// the close.
func (s *Server) readLoop(conn *websocket.Conn, pongWait time.Duration, done chan<- struct{}, log *logrus.Entry) {
	defer close(done)

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("Stream read error")
			}
			return
		}
	}
}
