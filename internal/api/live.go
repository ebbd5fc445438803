package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/middleware"
	"github.com/pft-analyzer-server/internal/narrative"
)

const (
	liveIdleTimeout  = 15 * time.Minute
	liveWriteTimeout = 10 * time.Second
	liveMaxMessage   = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// LiveEdit is one form edit sent by a live client. An empty value clears the
// field.
type LiveEdit struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LiveMessage is sent after the connection opens and after every edit.
type LiveMessage struct {
	*SessionResponse
	Error *domain.APIError `json:"error,omitempty"`
}

// handleLive upgrades to a websocket and re-interprets the session after
// every edit the client sends.
func (s *Server) handleLive(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	session, err := s.analyzer.GetSession(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	style, ok := s.style(c)
	if !ok {
		return
	}
	renderer := narrative.NewRenderer(style)
	requestID := c.GetString(middleware.CorrelationIDKey)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		s.logger.WithError(err).WithField("session_id", id).Debug("Live upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(liveMaxMessage)

	log := s.logger.WithFields(logrus.Fields{"session_id": id, "correlation_id": requestID})
	log.Info("Live session connected")

	send := func(msg LiveMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		return conn.WriteJSON(msg)
	}
	state := func(session *domain.Session) LiveMessage {
		result := s.analyzer.InterpretMeasurement(session.Measurement)
		return LiveMessage{SessionResponse: &SessionResponse{
			Session:        session,
			Interpretation: result,
			Rendered:       renderer.Render(result),
		}}
	}

	if err := send(state(session)); err != nil {
		return
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(liveIdleTimeout))

		var edit LiveEdit
		if err := conn.ReadJSON(&edit); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				log.WithError(err).Debug("Live session read failed")
			}
			log.Info("Live session disconnected")
			return
		}

		updated, err := s.analyzer.EditField(ctx, id, edit.Key, edit.Value)
		if err != nil {
			status, code, message := classifyError(err, "")
			msg := LiveMessage{Error: domain.NewAPIError(code, message, err.Error(), requestID)}
			if sendErr := send(msg); sendErr != nil {
				return
			}
			if status == http.StatusNotFound {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
					time.Now().Add(liveWriteTimeout))
				return
			}
			continue
		}

		if err := send(state(updated)); err != nil {
			return
		}
	}
}
