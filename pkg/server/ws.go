package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/viewer"
)

const (
	maxMessageBytes = 16 << 10
	writeTimeout    = 10 * time.Second
)

// Message types sent to the browser.
const (
	MessageMount = "mount"
	MessageFrame = "frame"
	MessageError = "error"
)

// Message is the outgoing websocket message format.
type Message struct {
	Type    string        `json:"type"`
	Session string        `json:"session,omitempty"`
	Map     string        `json:"map,omitempty"` // mount only
	Frame   *viewer.Frame `json:"frame,omitempty"`
	Code    string        `json:"code,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{CheckOrigin: s.checkOrigin}
}

// checkOrigin admits same-host requests and the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return strings.HasSuffix(strings.ToLower(origin), "://"+strings.ToLower(r.Host))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	v, err := s.mount(ctx)
	if err != nil {
		s.logger.Error("mount viewer", "error", err)
		s.sendError(conn, "", err)
		return
	}

	sess, err := s.sessions.Open(ctx, v)
	if err != nil {
		s.logger.Warn("session rejected", "error", err, "remote", r.RemoteAddr)
		s.sendError(conn, "", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, errors.UserMessage(err)),
			time.Now().Add(writeTimeout))
		return
	}
	defer s.sessions.Close(context.Background(), sess.ID)

	logger := s.logger.With("session", sess.ID)
	logger.Debug("session opened", "remote", r.RemoteAddr)

	var first viewer.Frame
	sess.Do(func(v *viewer.Viewer) { first = v.Frame() })
	if err := s.send(conn, Message{Type: MessageMount, Session: sess.ID, Map: v.MapImage(), Frame: &first}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read", "error", err)
			}
			return
		}

		var ev viewer.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.sendError(conn, sess.ID, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid message format"))
			continue
		}

		var (
			changed bool
			frame   viewer.Frame
		)
		sess.Do(func(v *viewer.Viewer) {
			changed, err = v.Dispatch(ev)
			if changed {
				frame = v.Frame()
			}
		})
		if err != nil {
			s.sendError(conn, sess.ID, err)
			continue
		}
		if !changed {
			continue
		}
		if err := s.send(conn, Message{Type: MessageFrame, Session: sess.ID, Frame: &frame}); err != nil {
			logger.Debug("websocket write", "error", err)
			return
		}
	}
}

// mount loads the site and mounts a viewer for one connection.
func (s *Server) mount(ctx context.Context) (*viewer.Viewer, error) {
	site, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, errors.New(errors.ErrCodeInternal, "loader returned no site")
	}
	return site.Mount(ctx, MountOptions{
		Viewport: s.cfg.Viewport,
		Messages: s.cfg.Messages,
		Logger:   s.logger,
	})
}

func (s *Server) send(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

func (s *Server) sendError(conn *websocket.Conn, sessionID string, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if werr := s.send(conn, Message{
		Type:    MessageError,
		Session: sessionID,
		Code:    string(code),
		Error:   errors.UserMessage(err),
	}); werr != nil {
		s.logger.Debug("websocket write", "error", werr)
	}
}
