package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/doctor-appointment-api/internal/models"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotBooked          = errors.New("slot is already booked")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrStatusChanged       = errors.New("appointment status changed")
)

// DoctorStore owns doctor records and their embedded time slots.
type DoctorStore interface {
	CreateDoctor(ctx context.Context, d *models.Doctor) error
	GetDoctor(ctx context.Context, id primitive.ObjectID) (*models.Doctor, error)
	GetDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error)
	ListDoctors(ctx context.Context) ([]models.Doctor, error)
	GetDoctorsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Doctor, error)

	// AddTimeSlot appends slot and returns the updated doctor.
	AddTimeSlot(ctx context.Context, doctorID primitive.ObjectID, slot models.TimeSlot) (*models.Doctor, error)
	// ClaimTimeSlot flips isBooked from false to true in a single conditional
	// write. It returns ErrSlotBooked when another caller got there first.
	ClaimTimeSlot(ctx context.Context, doctorID, slotID primitive.ObjectID) error
	// ReleaseTimeSlot sets isBooked back to false.
	ReleaseTimeSlot(ctx context.Context, doctorID, slotID primitive.ObjectID) error
}

type PatientStore interface {
	CreatePatient(ctx context.Context, p *models.Patient) error
	GetPatient(ctx context.Context, id primitive.ObjectID) (*models.Patient, error)
	GetPatientByEmail(ctx context.Context, email string) (*models.Patient, error)
	GetPatientsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Patient, error)
}

type AppointmentStore interface {
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
	// TransitionAppointmentStatus moves the appointment from one status to
	// another in a single conditional write. It returns ErrStatusChanged when
	// the appointment exists but is no longer in from.
	TransitionAppointmentStatus(ctx context.Context, id primitive.ObjectID, from, to models.AppointmentStatus) error
	// Lists are ordered by date descending, newest creation first on ties.
	ListAppointmentsByPatient(ctx context.Context, patientID primitive.ObjectID) ([]models.Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]models.Appointment, error)
}

type Store interface {
	DoctorStore
	PatientStore
	AppointmentStore
	Ping(ctx context.Context) error
}
