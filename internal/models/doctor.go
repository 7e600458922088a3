package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// TimeSlot is embedded in the doctor document and has no lifecycle of its own.
type TimeSlot struct {
	ID       primitive.ObjectID `bson:"_id" json:"_id"`
	Date     time.Time          `bson:"date" json:"date"`
	Time     string             `bson:"time" json:"time"`
	IsBooked bool               `bson:"isBooked" json:"isBooked"`
}

type Doctor struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password" json:"-"` // Hide from JSON responses
	Specialization string             `bson:"specialization" json:"specialization"`
	TimeSlots      []TimeSlot         `bson:"timeSlots" json:"timeSlots"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

// Slot returns the embedded slot with the given id.
func (d *Doctor) Slot(id primitive.ObjectID) (*TimeSlot, bool) {
	for i := range d.TimeSlots {
		if d.TimeSlots[i].ID == id {
			return &d.TimeSlots[i], true
		}
	}
	return nil, false
}

// AvailableSlots keeps storage order.
func (d *Doctor) AvailableSlots() []TimeSlot {
	slots := make([]TimeSlot, 0, len(d.TimeSlots))
	for _, s := range d.TimeSlots {
		if !s.IsBooked {
			slots = append(slots, s)
		}
	}
	return slots
}

// DoctorSummary is what a patient sees of the doctor on an appointment.
type DoctorSummary struct {
	ID             primitive.ObjectID `json:"_id"`
	Name           string             `json:"name"`
	Specialization string             `json:"specialization"`
}
