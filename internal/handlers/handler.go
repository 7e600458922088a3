package handlers

import (
	"github.com/rs/zerolog"

	"github.com/harentsoaR/doctor-appointment-api/internal/services"
)

// Handler groups the gin handlers; every handler is a method on it.
type Handler struct {
	Accounts *services.AccountService
	Booking  *services.BookingService
	Logger   zerolog.Logger
}

func NewHandler(accounts *services.AccountService, booking *services.BookingService, logger zerolog.Logger) *Handler {
	return &Handler{
		Accounts: accounts,
		Booking:  booking,
		Logger:   logger,
	}
}
