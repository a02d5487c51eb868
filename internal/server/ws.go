package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tmorrow-dev/quizwire/internal/protocol"
	"github.com/tmorrow-dev/quizwire/internal/session"
)

const (
	outboxSize   = 32
	writeTimeout = 10 * time.Second
)

// handleWS runs one connection handler: admission check, WebSocket
// upgrade, then a writer goroutine draining the session's outbox and
// a reader loop forwarding client messages as session events.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := realIP(r)
	connID := uuid.NewString()
	log := s.log.With(zap.String("conn", connID), zap.String("ip", ip))

	outbox := make(chan protocol.ServerMessage, outboxSize)
	reply := make(chan error, 1)
	s.sess.Inbox() <- session.Connect{ConnID: connID, IP: ip, Outbox: outbox, Reply: reply}
	if err := <-reply; err != nil {
		log.Info("connection refused", zap.Error(err))
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn("websocket accept failed", zap.Error(err))
		s.sess.Inbox() <- session.Disconnect{ConnID: connID}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	defer func() { s.sess.Inbox() <- session.Disconnect{ConnID: connID} }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Writer: drains the outbox until the session closes it (stop,
	// kick, ban, or overflow), then forces the reader loop to end so
	// tear-down never waits on the client.
	go func() {
		defer cancel()
		for msg := range outbox {
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(wctx, websocket.MessageText, payload)
			wcancel()
			if err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "session closed")
	}()

	for {
		rctx, rcancel := context.WithTimeout(ctx, s.cfg.IdleTimeout)
		_, data, err := conn.Read(rctx)
		rcancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				log.Debug("read ended", zap.Error(err))
			}
			return
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn("protocol violation: malformed frame")
			return
		}

		switch msg.Type {
		case protocol.TypeJoin:
			s.sess.Inbox() <- session.Join{ConnID: connID, Username: msg.Username}
		case protocol.TypeAnswer:
			s.sess.Inbox() <- session.Answer{
				ConnID:        connID,
				QuestionIndex: msg.QuestionIndex,
				OptionIndex:   msg.OptionIndex,
			}
		default:
			log.Warn("protocol violation: unexpected message type", zap.String("type", msg.Type))
			return
		}
	}
}

// realIP resolves the client address, honoring the X-Real-IP header
// set by reverse proxies.
func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" && net.ParseIP(ip) != nil {
		host = ip
	}
	return host
}
