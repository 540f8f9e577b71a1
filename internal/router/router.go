package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Arpan7125/procto-3.0/internal/config"
	"github.com/Arpan7125/procto-3.0/internal/handler"
	"github.com/Arpan7125/procto-3.0/internal/middleware"
	"github.com/Arpan7125/procto-3.0/internal/model"
	"github.com/Arpan7125/procto-3.0/internal/observability"
	"github.com/Arpan7125/procto-3.0/internal/response"
	"github.com/Arpan7125/procto-3.0/internal/service"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Course      *handler.CourseHandler
	Question    *handler.QuestionHandler
	Exam        *handler.ExamHandler
	ExamSession *handler.ExamSessionHandler
	AI          *handler.AIHandler
	Monitor     *handler.MonitorHandler
}

// Setup builds the Gin engine with all routes and middleware.
func Setup(cfg *config.Config, auth *service.AuthService, h Handlers) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(response.RequestIDMiddleware())
	r.Use(observability.HTTPMetrics())
	r.Use(middleware.Brotli())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-ID")
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", observability.MetricsHandler())

	v1 := r.Group("/api/v1")

	// ─── Auth ───
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", authLimiter.Middleware(), h.Auth.Register)
		authGroup.POST("/login", authLimiter.Middleware(), h.Auth.Login)
		authGroup.GET("/me", middleware.RequireAuth(auth), h.Auth.Me)
	}

	// ─── Courses ───
	courses := v1.Group("/courses", middleware.RequireAuth(auth))
	{
		courses.POST("", middleware.RequireRole(model.RoleFaculty, model.RoleAdmin), h.Course.Create)
		courses.GET("", h.Course.List)
		courses.GET("/:course_id", h.Course.Get)
		courses.PATCH("/:course_id", middleware.RequireRole(model.RoleFaculty, model.RoleAdmin), h.Course.Update)
		courses.DELETE("/:course_id", middleware.RequireRole(model.RoleFaculty, model.RoleAdmin), h.Course.Delete)
		courses.POST("/enroll", middleware.RequireRole(model.RoleStudent), h.Course.Enroll)
		courses.DELETE("/:course_id/enrollment", middleware.RequireRole(model.RoleStudent), h.Course.Unenroll)
		courses.GET("/:course_id/roster", middleware.RequireRole(model.RoleFaculty, model.RoleAdmin), h.Course.Roster)
		courses.DELETE("/:course_id/students/:student_id", middleware.RequireRole(model.RoleFaculty, model.RoleAdmin), h.Course.RemoveStudent)
	}

	// ─── Question bank ───
	questions := v1.Group("/questions", middleware.RequireAuth(auth))
	{
		// Reads are open to enrolled students; the service redacts answer keys.
		questions.GET("", h.Question.List)
		questions.GET("/:question_id", h.Question.Get)

		staff := questions.Group("", middleware.RequireRole(model.RoleFaculty, model.RoleAdmin))
		{
			staff.POST("", h.Question.Create)
			staff.POST("/import", h.Question.Import)
			staff.PATCH("/:question_id", h.Question.Update)
			staff.DELETE("/:question_id", h.Question.Delete)
		}
	}

	// ─── Exams ───
	exams := v1.Group("/exams", middleware.RequireAuth(auth))
	{
		exams.GET("", h.Exam.ListByCourse)
		exams.GET("/:exam_id", h.Exam.Get)

		staff := exams.Group("", middleware.RequireRole(model.RoleFaculty, model.RoleAdmin))
		{
			staff.POST("", h.Exam.Create)
			staff.PATCH("/:exam_id", h.Exam.Update)
			staff.DELETE("/:exam_id", h.Exam.Delete)
			staff.POST("/:exam_id/questions", h.Exam.AddQuestions)
			staff.DELETE("/:exam_id/questions/:question_id", h.Exam.RemoveQuestion)
			staff.POST("/:exam_id/publish", h.Exam.Publish)
			staff.POST("/:exam_id/unpublish", h.Exam.Unpublish)
			staff.GET("/:exam_id/results", h.Exam.Results)
		}
	}

	// ─── Exam sessions ───
	sessions := v1.Group("/exam-sessions", middleware.RequireAuth(auth))
	{
		sessions.POST("", h.ExamSession.Start)
		sessions.GET("/:session_id", h.ExamSession.Get)
		sessions.POST("/:session_id/answers", h.ExamSession.SaveAnswers)
		sessions.POST("/:session_id/submit", h.ExamSession.Submit)
	}

	// ─── AI generation ───
	ai := v1.Group("/ai", middleware.RequireAuth(auth), middleware.RequireRole(model.RoleFaculty, model.RoleAdmin))
	{
		ai.POST("/generate-questions", h.AI.Generate)
	}

	// ─── Live monitor (WebSocket) ───
	ws := r.Group("/ws/v1", middleware.RequireWSAuth(auth))
	{
		ws.GET("/exams/:exam_id/monitor", h.Monitor.Monitor)
	}

	return r
}
