package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	internalmiddleware "github.com/tutorbill/tutorbill-api/internal/middleware"
	"github.com/tutorbill/tutorbill-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth     *AuthHandler
	Students *StudentHandler
	Lessons  *LessonHandler
	Payments *PaymentHandler
	Rollover *RolloverHandler
	Exports  *ExportHandler
}

// RegisterRoutes mounts the API surface on the given engine.
func RegisterRoutes(r *gin.Engine, h Handlers, auth *service.AuthService, metrics *service.MetricsService, reportsEnabled bool) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", h.Auth.Login)

	secured := v1.Group("")
	secured.Use(internalmiddleware.JWT(auth))

	secured.GET("/students", h.Students.List)
	secured.POST("/students", h.Students.Create)
	secured.GET("/students/:id", h.Students.Get)
	secured.PUT("/students/:id", h.Students.Update)
	secured.DELETE("/students/:id", h.Students.Delete)

	secured.GET("/students/:id/lessons", h.Lessons.List)
	secured.POST("/students/:id/lessons", h.Lessons.Create)
	secured.POST("/students/:id/lessons/bulk", h.Lessons.BulkRestore)
	secured.PUT("/students/:id/lessons/:lessonId", h.Lessons.Update)
	secured.DELETE("/students/:id/lessons/:lessonId", h.Lessons.Delete)

	secured.GET("/students/:id/payments", h.Payments.Ledger)
	secured.POST("/students/:id/payments/settle", h.Payments.Settle)
	secured.POST("/students/:id/payments/:month", h.Payments.PayMonth)

	secured.GET("/billing/summary", h.Payments.Summary)
	secured.POST("/billing/rollover", h.Rollover.Run)

	if reportsEnabled {
		secured.GET("/reports/statement", h.Exports.Statement)
	}
}
