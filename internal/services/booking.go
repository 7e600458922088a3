package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/doctor-appointment-api/internal/models"
	"github.com/harentsoaR/doctor-appointment-api/internal/store"
)

// Accepted slot/appointment date layouts: plain day first, then full timestamps.
var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

type BookInput struct {
	DoctorID   string
	TimeSlotID string
	Date       string
	Time       string
}

// BookingService keeps slots and appointments consistent: a slot is booked
// exactly while one booked appointment references it.
type BookingService struct {
	store  store.Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewBookingService(s store.Store, logger zerolog.Logger) *BookingService {
	return &BookingService{
		store:  s,
		logger: logger.With().Str("component", "booking").Logger(),
		now:    time.Now,
	}
}

func (s *BookingService) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	return s.store.ListDoctors(ctx)
}

func (s *BookingService) GetDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	id, err := primitive.ObjectIDFromHex(doctorID)
	if err != nil {
		return nil, newError(ErrNotFound, "Doctor not found")
	}
	d, err := s.store.GetDoctor(ctx, id)
	if errors.Is(err, store.ErrDoctorNotFound) {
		return nil, newError(ErrNotFound, "Doctor not found")
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListAvailableSlots returns the unbooked slots in insertion order.
func (s *BookingService) ListAvailableSlots(ctx context.Context, doctorID string) ([]models.TimeSlot, error) {
	d, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return d.AvailableSlots(), nil
}

// AddSlot appends a free slot to the caller's own schedule. Duplicate
// date/time pairs are accepted.
func (s *BookingService) AddSlot(ctx context.Context, callerID, doctorID, date, timeLabel string) (*models.Doctor, error) {
	timeLabel = strings.TrimSpace(timeLabel)
	if strings.TrimSpace(date) == "" || timeLabel == "" {
		return nil, newError(ErrValidation, "Date and time are required")
	}
	if callerID != doctorID {
		return nil, newError(ErrForbidden, "Unauthorized")
	}
	day, err := parseDate(date)
	if err != nil {
		return nil, newError(ErrValidation, "Invalid date")
	}
	id, err := primitive.ObjectIDFromHex(doctorID)
	if err != nil {
		return nil, newError(ErrNotFound, "Doctor not found")
	}

	slot := models.TimeSlot{
		ID:       primitive.NewObjectID(),
		Date:     day,
		Time:     timeLabel,
		IsBooked: false,
	}
	d, err := s.store.AddTimeSlot(ctx, id, slot)
	if errors.Is(err, store.ErrDoctorNotFound) {
		return nil, newError(ErrNotFound, "Doctor not found")
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("doctor_id", doctorID).
		Str("slot_id", slot.ID.Hex()).
		Time("date", day).
		Str("time", timeLabel).
		Msg("time slot added")
	return d, nil
}

// BookAppointment claims the slot with one conditional write and then records
// the appointment. If recording fails the claim is undone.
func (s *BookingService) BookAppointment(ctx context.Context, patientID string, in BookInput) (*models.Appointment, error) {
	if in.DoctorID == "" || in.TimeSlotID == "" || strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.Time) == "" {
		return nil, newError(ErrValidation, "All fields are required")
	}
	patient, err := primitive.ObjectIDFromHex(patientID)
	if err != nil {
		return nil, newError(ErrUnauthenticated, "Invalid token subject")
	}
	day, err := parseDate(in.Date)
	if err != nil {
		return nil, newError(ErrValidation, "Invalid date")
	}
	doctorID, err := primitive.ObjectIDFromHex(in.DoctorID)
	if err != nil {
		return nil, newError(ErrNotFound, "Doctor not found")
	}
	slotID, err := primitive.ObjectIDFromHex(in.TimeSlotID)
	if err != nil {
		return nil, newError(ErrNotFound, "Slot not found")
	}

	switch err := s.store.ClaimTimeSlot(ctx, doctorID, slotID); {
	case errors.Is(err, store.ErrDoctorNotFound):
		return nil, newError(ErrNotFound, "Doctor not found")
	case errors.Is(err, store.ErrSlotNotFound):
		return nil, newError(ErrNotFound, "Slot not found")
	case errors.Is(err, store.ErrSlotBooked):
		return nil, newError(ErrConflict, "Slot is already booked")
	case err != nil:
		return nil, err
	}

	apt := &models.Appointment{
		ID:         primitive.NewObjectID(),
		DoctorID:   doctorID,
		PatientID:  patient,
		TimeSlotID: slotID,
		Date:       day,
		Time:       strings.TrimSpace(in.Time),
		Status:     models.StatusBooked,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateAppointment(ctx, apt); err != nil {
		// The request context may be the reason the insert failed.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := s.store.ReleaseTimeSlot(releaseCtx, doctorID, slotID); relErr != nil {
			s.logger.Error().Err(relErr).
				Str("doctor_id", in.DoctorID).
				Str("slot_id", in.TimeSlotID).
				Msg("slot left booked without an appointment")
		}
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", apt.ID.Hex()).
		Str("doctor_id", in.DoctorID).
		Str("patient_id", patientID).
		Str("slot_id", in.TimeSlotID).
		Msg("appointment booked")
	return apt, nil
}

// CancelAppointment may be called by the appointment's patient or doctor.
// Cancelling twice is accepted and leaves the slot alone the second time.
func (s *BookingService) CancelAppointment(ctx context.Context, callerID, appointmentID string) (*models.Appointment, error) {
	apt, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.PatientID.Hex() != callerID && apt.DoctorID.Hex() != callerID {
		return nil, newError(ErrForbidden, "Unauthorized")
	}
	if apt.Status != models.StatusBooked {
		return cancelOutcome(apt)
	}

	// Status goes first: a failure in between leaves the slot booked rather
	// than free under a live appointment. Only the caller that wins the
	// transition releases the slot.
	err = s.store.TransitionAppointmentStatus(ctx, apt.ID, models.StatusBooked, models.StatusCancelled)
	switch {
	case errors.Is(err, store.ErrStatusChanged):
		if apt, err = s.loadAppointment(ctx, appointmentID); err != nil {
			return nil, err
		}
		return cancelOutcome(apt)
	case errors.Is(err, store.ErrAppointmentNotFound):
		return nil, newError(ErrNotFound, "Appointment not found")
	case err != nil:
		return nil, err
	}
	apt.Status = models.StatusCancelled

	err = s.store.ReleaseTimeSlot(ctx, apt.DoctorID, apt.TimeSlotID)
	switch {
	case errors.Is(err, store.ErrSlotNotFound), errors.Is(err, store.ErrDoctorNotFound):
		s.logger.Warn().Str("appointment_id", appointmentID).Msg("cancelled appointment had no slot to release")
	case err != nil:
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID).
		Str("cancelled_by", callerID).
		Msg("appointment cancelled")
	return apt, nil
}

// cancelOutcome answers a cancel for an appointment that is no longer booked.
func cancelOutcome(apt *models.Appointment) (*models.Appointment, error) {
	if apt.Status == models.StatusCancelled {
		return apt, nil
	}
	return nil, newError(ErrConflict, "Appointment is already completed")
}

// CompleteAppointment lets the doctor close a booked appointment. The slot
// stays booked.
func (s *BookingService) CompleteAppointment(ctx context.Context, doctorID, appointmentID string) (*models.Appointment, error) {
	apt, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.DoctorID.Hex() != doctorID {
		return nil, newError(ErrForbidden, "Unauthorized")
	}
	if apt.Status != models.StatusBooked {
		return completeOutcome(apt)
	}

	err = s.store.TransitionAppointmentStatus(ctx, apt.ID, models.StatusBooked, models.StatusCompleted)
	switch {
	case errors.Is(err, store.ErrStatusChanged):
		if apt, err = s.loadAppointment(ctx, appointmentID); err != nil {
			return nil, err
		}
		return completeOutcome(apt)
	case errors.Is(err, store.ErrAppointmentNotFound):
		return nil, newError(ErrNotFound, "Appointment not found")
	case err != nil:
		return nil, err
	}
	apt.Status = models.StatusCompleted
	s.logger.Info().Str("appointment_id", appointmentID).Msg("appointment completed")
	return apt, nil
}

// completeOutcome answers a completion for an appointment that is no longer
// booked.
func completeOutcome(apt *models.Appointment) (*models.Appointment, error) {
	if apt.Status == models.StatusCompleted {
		return apt, nil
	}
	return nil, newError(ErrConflict, "Appointment is cancelled")
}

func (s *BookingService) ListPatientAppointments(ctx context.Context, patientID string) ([]models.PatientAppointment, error) {
	id, err := primitive.ObjectIDFromHex(patientID)
	if err != nil {
		return nil, newError(ErrUnauthenticated, "Invalid token subject")
	}
	apts, err := s.store.ListAppointmentsByPatient(ctx, id)
	if err != nil {
		return nil, err
	}

	doctors, err := s.store.GetDoctorsByIDs(ctx, uniqueIDs(apts, func(a models.Appointment) primitive.ObjectID { return a.DoctorID }))
	if err != nil {
		return nil, err
	}

	out := make([]models.PatientAppointment, 0, len(apts))
	for _, a := range apts {
		view := models.PatientAppointment{
			ID:         a.ID,
			PatientID:  a.PatientID,
			TimeSlotID: a.TimeSlotID,
			Date:       a.Date,
			Time:       a.Time,
			Status:     a.Status,
			CreatedAt:  a.CreatedAt,
		}
		if d, ok := doctors[a.DoctorID]; ok {
			view.Doctor = &models.DoctorSummary{ID: d.ID, Name: d.Name, Specialization: d.Specialization}
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *BookingService) ListDoctorAppointments(ctx context.Context, doctorID string) ([]models.DoctorAppointment, error) {
	id, err := primitive.ObjectIDFromHex(doctorID)
	if err != nil {
		return nil, newError(ErrUnauthenticated, "Invalid token subject")
	}
	apts, err := s.store.ListAppointmentsByDoctor(ctx, id)
	if err != nil {
		return nil, err
	}

	patients, err := s.store.GetPatientsByIDs(ctx, uniqueIDs(apts, func(a models.Appointment) primitive.ObjectID { return a.PatientID }))
	if err != nil {
		return nil, err
	}

	out := make([]models.DoctorAppointment, 0, len(apts))
	for _, a := range apts {
		view := models.DoctorAppointment{
			ID:         a.ID,
			DoctorID:   a.DoctorID,
			TimeSlotID: a.TimeSlotID,
			Date:       a.Date,
			Time:       a.Time,
			Status:     a.Status,
			CreatedAt:  a.CreatedAt,
		}
		if p, ok := patients[a.PatientID]; ok {
			view.Patient = &models.PatientSummary{ID: p.ID, Name: p.Name, Email: p.Email}
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *BookingService) loadAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	id, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, newError(ErrNotFound, "Appointment not found")
	}
	apt, err := s.store.GetAppointment(ctx, id)
	if errors.Is(err, store.ErrAppointmentNotFound) {
		return nil, newError(ErrNotFound, "Appointment not found")
	}
	if err != nil {
		return nil, err
	}
	return apt, nil
}

func uniqueIDs(apts []models.Appointment, key func(models.Appointment) primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(apts))
	ids := make([]primitive.ObjectID, 0, len(apts))
	for _, a := range apts {
		id := key(a)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
