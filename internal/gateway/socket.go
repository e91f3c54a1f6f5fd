package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/flemzord/ragchat/internal/security"
	"github.com/go-chi/chi/v5"
)

// Socket frame types.
const (
	frameTurn  = "turn"
	frameReply = "reply"
	frameError = "error"
)

// clientFrame is sent by the client. Only "turn" frames are accepted.
type clientFrame struct {
	Type        string `json:"type"`
	ID          string `json:"id,omitempty"`
	Text        string `json:"text"`
	Backend     int    `json:"backend"`
	Temperature *int   `json:"temperature,omitempty"`
}

// serverFrame answers one client frame, echoing its id.
type serverFrame struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Text    string `json:"text,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Backend string `json:"backend,omitempty"`
	Model   string `json:"model,omitempty"`
	Error   string `json:"error,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// handleSocket serves GET /ws/sessions/{id}. Frames are handled one at a
// time; a turn on the socket still shares the session lane with HTTP turns.
func (g *Gateway) handleSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		key := clientKey(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: g.config.AllowedOrigins,
		})
		if err != nil {
			g.logger.Error("websocket accept failed", "error", err)
			return
		}
		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "unexpected close")
		}()

		g.logger.Debug("chat socket opened", "session", sessionID)
		err = g.readLoop(r.Context(), conn, sessionID, key)
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			g.logger.Debug("chat socket closed", "session", sessionID)
		default:
			if !errors.Is(err, context.Canceled) {
				g.logger.Warn("chat socket ended", "session", sessionID, "error", err)
			}
		}
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, sessionID, key string) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var in clientFrame
		if err := json.Unmarshal(data, &in); err != nil {
			if err := g.send(ctx, conn, serverFrame{Type: frameError, Error: "invalid frame", Status: http.StatusBadRequest}); err != nil {
				return err
			}
			continue
		}

		if err := g.send(ctx, conn, g.handleFrame(ctx, sessionID, key, in)); err != nil {
			return err
		}
	}
}

func (g *Gateway) handleFrame(ctx context.Context, sessionID, key string, in clientFrame) serverFrame {
	if in.Type != frameTurn {
		return serverFrame{Type: frameError, ID: in.ID, Error: "unsupported frame type " + in.Type, Status: http.StatusBadRequest}
	}
	if g.limiter != nil {
		if err := g.limiter.Allow(security.KindTurn, key); err != nil {
			g.metrics.ObserveRejection(security.KindTurn)
			return serverFrame{Type: frameError, ID: in.ID, Error: err.Error(), Status: statusFor(err)}
		}
	}

	res, err := g.turn(ctx, sessionID, turnRequest{Text: in.Text, Backend: in.Backend, Temperature: in.Temperature})
	if err != nil {
		status := statusFor(err)
		return serverFrame{Type: frameError, ID: in.ID, Error: g.clientMessage(status, err), Status: status}
	}
	return serverFrame{
		Type:    frameReply,
		ID:      in.ID,
		Text:    res.Text,
		Mode:    res.Mode,
		Backend: res.Backend,
		Model:   res.Model,
	}
}

// send marshals and writes one frame.
func (g *Gateway) send(ctx context.Context, conn *websocket.Conn, f serverFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		g.logger.Warn("write frame failed", "error", err)
		return err
	}
	return nil
}
