package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/doctor-appointment-api/internal/middleware"
	"github.com/harentsoaR/doctor-appointment-api/internal/services"
)

type BookAppointmentRequest struct {
	DoctorID   string `json:"doctorId"`
	TimeSlotID string `json:"timeSlotId"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

// --- BOOK APPOINTMENT (patient only) ---
func (h *Handler) BookAppointment(c *gin.Context) {
	var req BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	apt, err := h.Booking.BookAppointment(c.Request.Context(), middleware.UserID(c), services.BookInput{
		DoctorID:   req.DoctorID,
		TimeSlotID: req.TimeSlotID,
		Date:       req.Date,
		Time:       req.Time,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Appointment booked successfully", "appointment": apt})
}

// --- MY APPOINTMENTS (newest date first) ---
func (h *Handler) GetPatientAppointments(c *gin.Context) {
	appointments, err := h.Booking.ListPatientAppointments(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func (h *Handler) GetDoctorAppointments(c *gin.Context) {
	appointments, err := h.Booking.ListDoctorAppointments(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

// --- CANCEL APPOINTMENT (patient or doctor of the appointment) ---
func (h *Handler) CancelAppointment(c *gin.Context) {
	apt, err := h.Booking.CancelAppointment(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled successfully", "appointment": apt})
}

// --- COMPLETE APPOINTMENT (doctor of the appointment) ---
func (h *Handler) CompleteAppointment(c *gin.Context) {
	apt, err := h.Booking.CompleteAppointment(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment completed successfully", "appointment": apt})
}
