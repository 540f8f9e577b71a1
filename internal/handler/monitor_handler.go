package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Arpan7125/procto-3.0/internal/events"
	"github.com/Arpan7125/procto-3.0/internal/middleware"
	"github.com/Arpan7125/procto-3.0/internal/model"
	"github.com/Arpan7125/procto-3.0/internal/response"
	"github.com/Arpan7125/procto-3.0/internal/service"
)

// MonitorHandler streams live session events for one exam to faculty over
// WebSocket.
type MonitorHandler struct {
	exams    *service.ExamService
	courses  *service.CourseService
	events   *events.RedisPublisher
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler. allowedOrigins empty means
// all origins pass the upgrade check.
func NewMonitorHandler(exams *service.ExamService, courses *service.CourseService, ev *events.RedisPublisher, allowedOrigins []string, log zerolog.Logger) *MonitorHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &MonitorHandler{
		exams:   exams,
		courses: courses,
		events:  ev,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		log: log.With().Str("component", "monitor_handler").Logger(),
	}
}

// Monitor handles GET /ws/v1/exams/:exam_id/monitor. Requires a FACULTY or
// ADMIN token; faculty must own the exam's course.
func (h *MonitorHandler) Monitor(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims.Role == model.RoleStudent {
		response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.exams.Get(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if claims.Role == model.RoleFaculty {
		course, err := h.courses.Get(c.Request.Context(), exam.CourseID)
		if err != nil || course.FacultyID != claims.UserID {
			response.Fail(c, http.StatusForbidden, response.ErrNotAuthorized)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.events.Subscribe(c.Request.Context(), examID)
	defer sub.Close()

	// Reader goroutine: its only job is noticing the client went away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.log.Info().
		Str("exam_id", examID.String()).
		Str("user_id", claims.UserID.String()).
		Msg("monitor connected")

	ch := sub.Channel()
	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		}
	}
}
