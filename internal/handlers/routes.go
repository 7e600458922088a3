package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/doctor-appointment-api/internal/middleware"
	"github.com/harentsoaR/doctor-appointment-api/internal/models"
	"github.com/harentsoaR/doctor-appointment-api/internal/utils"
)

// Register mounts the API under /api and the health check at /health.
// limiter may be nil.
func (h *Handler) Register(r *gin.Engine, tokens *utils.TokenManager, limiter *middleware.RateLimiter) {
	auth := middleware.AuthMiddleware(tokens)

	r.GET("/health", h.Health)

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	if limiter != nil {
		authRoutes.Use(limiter.Middleware())
	}
	{
		authRoutes.POST("/doctor/register", h.RegisterDoctor)
		authRoutes.POST("/doctor/login", h.LoginDoctor)
		authRoutes.POST("/patient/register", h.RegisterPatient)
		authRoutes.POST("/patient/login", h.LoginPatient)
	}

	doctorRoutes := api.Group("/doctors")
	{
		doctorRoutes.GET("", h.ListDoctors)
		doctorRoutes.GET("/:id", h.GetDoctor)
		doctorRoutes.POST("/:id/add-slot", auth, middleware.RequireRole(models.RoleDoctor), h.AddSlot)
		doctorRoutes.GET("/:id/slots", h.ListAvailableSlots)
	}

	appointmentRoutes := api.Group("/appointments")
	appointmentRoutes.Use(auth)
	{
		appointmentRoutes.POST("/book", middleware.RequireRole(models.RolePatient), h.BookAppointment)
		appointmentRoutes.GET("/patient/my-appointments", middleware.RequireRole(models.RolePatient), h.GetPatientAppointments)
		appointmentRoutes.GET("/doctor/my-appointments", middleware.RequireRole(models.RoleDoctor), h.GetDoctorAppointments)
		appointmentRoutes.PUT("/:id/cancel", h.CancelAppointment)
		appointmentRoutes.PUT("/:id/complete", middleware.RequireRole(models.RoleDoctor), h.CompleteAppointment)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Backend is running"})
}
