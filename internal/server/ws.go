package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/Hey-Ritik/voice-translation/internal/protocol"
	"github.com/Hey-Ritik/voice-translation/internal/session"
)

// handleWS implements the /ws/audio endpoint. Each connection gets its own
// session; the connection stays open until the client disconnects or the
// session is removed.
func (h *HTTPServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept failed",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	conn.SetReadLimit(h.config.Server.ReadLimitBytes)

	sess, err := h.sessionMgr.CreateSession()
	if err != nil {
		h.logger.Warn("rejecting connection",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()))
		conn.Close(websocket.StatusTryAgainLater, "session limit reached")
		return
	}
	defer h.sessionMgr.RemoveSession(sess.ID)

	h.logger.Info("websocket connection established",
		slog.String("session_id", sess.ID),
		slog.String("remote", r.RemoteAddr))

	ctx := r.Context()

	if err := h.writeEvent(ctx, conn, h.sessionMgr.ReadyEvent()); err != nil {
		h.logger.Warn("failed to send ready event",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()))
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return
	}

	// Writer drains session events until the session or connection ends.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, sess)
	}()

	h.readLoop(ctx, conn, sess)

	sess.Cancel()
	<-writerDone

	conn.Close(websocket.StatusNormalClosure, "")

	h.logger.Info("websocket connection closed",
		slog.String("session_id", sess.ID))
}

// readLoop reads client messages and feeds them to the session until the
// connection drops.
func (h *HTTPServer) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session) {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return
			}
			h.logger.Debug("websocket read ended",
				slog.String("session_id", sess.ID),
				slog.String("error", err.Error()))
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		sess.HandleMessage(data)
	}
}

// writeLoop serializes outbound session events onto the connection
func (h *HTTPServer) writeLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session) {
	for {
		select {
		case ev := <-sess.Events():
			if err := h.writeEvent(ctx, conn, ev); err != nil {
				h.logger.Debug("websocket write failed",
					slog.String("session_id", sess.ID),
					slog.String("event_type", ev.EventType()),
					slog.String("error", err.Error()))
				return
			}
		case <-sess.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

// writeEvent encodes and sends one event
func (h *HTTPServer) writeEvent(ctx context.Context, conn *websocket.Conn, ev protocol.Event) error {
	data, err := protocol.EncodeEvent(ev)
	if err != nil {
		return err
	}

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return err
	}

	if h.metrics != nil {
		h.metrics.RecordEventSent()
	}

	return nil
}
