package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// wsSender adapts a websocket connection to the notifier hub.
type wsSender struct {
	conn *websocket.Conn
}

func (s *wsSender) Send(ctx context.Context, event string) error {
	payload, err := json.Marshal(struct {
		Event string `json:"event"`
	}{Event: event})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, payload)
}

// handleParentStream upgrades the request to a websocket, registers it as
// a live notification channel for the parent, and holds it open until the
// peer goes away. Unregistration happens on every exit path.
func (s *server) handleParentStream(w http.ResponseWriter, r *http.Request) {
	parent, err := s.parentSessions.CurrentParent(r)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.app.Logger.Warn().Err(err).Int64("parentId", parent.ID).Msg("Websocket accept failed")
		return
	}
	defer conn.CloseNow()

	reg := s.hub.Register(parent.ID, &wsSender{conn: conn})
	defer reg.Close()

	s.app.Logger.Info().Int64("parentId", parent.ID).Msg("Parent stream opened")

	// The stream is push-only; reads just drain control frames and
	// detect disconnect.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	s.app.Logger.Info().Int64("parentId", parent.ID).Msg("Parent stream closed")
	conn.Close(websocket.StatusNormalClosure, "")
}
