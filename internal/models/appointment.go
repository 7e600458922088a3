package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Date and Time are copied from the booking request, not from the slot.
type Appointment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	DoctorID   primitive.ObjectID `bson:"doctorId" json:"doctorId"`
	PatientID  primitive.ObjectID `bson:"patientId" json:"patientId"`
	TimeSlotID primitive.ObjectID `bson:"timeSlotId" json:"timeSlotId"`
	Date       time.Time          `bson:"date" json:"date"`
	Time       string             `bson:"time" json:"time"`
	Status     AppointmentStatus  `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// Active reports whether the appointment still holds its slot exclusively.
func (a *Appointment) Active() bool {
	return a.Status == StatusBooked
}

// PatientAppointment is a patient's view: doctorId is populated.
type PatientAppointment struct {
	ID         primitive.ObjectID `json:"_id"`
	Doctor     *DoctorSummary     `json:"doctorId"`
	PatientID  primitive.ObjectID `json:"patientId"`
	TimeSlotID primitive.ObjectID `json:"timeSlotId"`
	Date       time.Time          `json:"date"`
	Time       string             `json:"time"`
	Status     AppointmentStatus  `json:"status"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// DoctorAppointment is a doctor's view: patientId is populated.
type DoctorAppointment struct {
	ID         primitive.ObjectID `json:"_id"`
	DoctorID   primitive.ObjectID `json:"doctorId"`
	Patient    *PatientSummary    `json:"patientId"`
	TimeSlotID primitive.ObjectID `json:"timeSlotId"`
	Date       time.Time          `json:"date"`
	Time       string             `json:"time"`
	Status     AppointmentStatus  `json:"status"`
	CreatedAt  time.Time          `json:"createdAt"`
}
