package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/doctor-appointment-api/internal/middleware"
)

type AddSlotRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// --- LIST DOCTORS (public, no password) ---
func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.Booking.ListDoctors(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doctors)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	doctor, err := h.Booking.GetDoctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doctor)
}

// --- ADD TIME SLOT (doctor, own schedule only) ---
func (h *Handler) AddSlot(c *gin.Context) {
	var req AddSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	doctor, err := h.Booking.AddSlot(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Date, req.Time)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Time slot added successfully", "doctor": doctor})
}

// --- AVAILABLE SLOTS (public) ---
func (h *Handler) ListAvailableSlots(c *gin.Context) {
	slots, err := h.Booking.ListAvailableSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}
