package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/proxy"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/telemetry"
)

const (
	wsWriteWait = 10 * time.Second
	// Close frame payloads are capped at 125 bytes, two of which hold the code.
	maxCloseReason = 123
)

// synthesizeWS godoc
//
// @Summary      Stream synthesized speech over WebSocket
// @Description  Send one JSON synthesis request as a text message. Each framed unit arrives as a binary message; a zero-length unit ends a complete stream. Rejected requests close with 1008 (invalid input), 1013 (not configured) or 1011.
// @Tags         synthesis
// @Router       /synthesize/ws [get]
func (h *Handler) synthesizeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Info("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestBody)

	// The request is always read so the peer never sees a reset while its
	// message is still unread.
	var req proxy.Request
	decodeErr := conn.ReadJSON(&req)
	if err := h.svc.Ready(); err != nil {
		h.closeWS(conn, err)
		return
	}
	if decodeErr != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "invalid request: "+decodeErr.Error())
		return
	}

	// A hijacked connection is not tied to the request context, so a reader
	// loop watches for the peer going away.
	ctx, cancel := context.WithCancel(h.requestContext(r))
	defer cancel()
	ctx = proxy.WithMode(ctx, telemetry.ModeWebSocket)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	units, err := h.svc.SynthesizeStream(ctx, req)
	if err != nil {
		h.closeWS(conn, err)
		return
	}

	for unit := range units {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, unit); err != nil {
			h.log.Info("websocket client gone", "error", err, "request_id", middleware.GetReqID(r.Context()))
			return
		}
	}
	closeWith(conn, websocket.CloseNormalClosure, "")
}

func (h *Handler) closeWS(conn *websocket.Conn, err error) {
	code := websocket.CloseInternalServerErr
	detail := "internal error"
	var perr *proxy.Error
	if errors.As(err, &perr) {
		detail = perr.Detail
		switch {
		case errors.Is(err, proxy.ErrInvalidInput):
			code = websocket.ClosePolicyViolation
		case errors.Is(err, proxy.ErrUnconfigured):
			code = websocket.CloseTryAgainLater
		}
	}
	closeWith(conn, code, detail)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
