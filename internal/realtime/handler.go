package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ConfabulousDev/teamdocs/internal/logger"
)

const (
	sendQueueSize = 64
	writeTimeout  = 10 * time.Second
	readLimit     = 4 << 20
)

// HandlerOptions configures the websocket endpoint.
type HandlerOptions struct {
	// OriginPatterns lists allowed browser origins; "*" allows any.
	OriginPatterns []string
}

// Handler upgrades the request to a websocket and serves room events until
// the client disconnects.
func Handler(hub *Hub, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Warn("Failed to accept websocket", "error", err)
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(readLimit)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c := &client{
			send: make(chan []byte, sendQueueSize),
			closeSlow: func() {
				conn.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
			},
			rooms: make(map[string]struct{}),
		}
		defer func() {
			for _, docID := range hub.leaveAll(c) {
				log.Debug("Client left room on disconnect", "doc_id", docID)
			}
		}()

		go writeLoop(ctx, conn, c.send, cancel)

		log.Info("Websocket client connected", "remote_addr", r.RemoteAddr)
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				if isNormalClose(err) || ctx.Err() != nil {
					log.Info("Websocket client disconnected")
				} else {
					log.Warn("Websocket read failed", "error", err)
				}
				return
			}
			if typ != websocket.MessageText {
				continue
			}
			var frame Frame
			if err := json.Unmarshal(data, &frame); err != nil {
				log.Debug("Ignoring non-JSON frame", "error", err)
				continue
			}
			if err := hub.handle(c, frame); err != nil {
				log.Debug("Ignoring malformed frame", "event", frame.Event, "error", err)
			}
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, send <-chan []byte, cancel context.CancelFunc) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-send:
			writeCtx, done := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			done()
			if err != nil {
				return
			}
		}
	}
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
