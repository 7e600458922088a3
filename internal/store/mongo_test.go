package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/doctor-appointment-api/internal/models"
)

// setupMongo connects to MONGODB_URI and uses a throwaway database.
func setupMongo(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := client.Database(fmt.Sprintf("doctor_appointment_test_%s", primitive.NewObjectID().Hex()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	s := NewMongoStore(db)
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	return s
}

func TestMongoClaimTimeSlot(t *testing.T) {
	s := setupMongo(t)
	ctx := context.Background()

	d := &models.Doctor{Name: "Dr. John", Email: "john@example.com", Specialization: "Cardiology"}
	if err := s.CreateDoctor(ctx, d); err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	slot := models.TimeSlot{ID: primitive.NewObjectID(), Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Time: "10:00"}
	updated, err := s.AddTimeSlot(ctx, d.ID, slot)
	if err != nil {
		t.Fatalf("add slot: %v", err)
	}
	if len(updated.TimeSlots) != 1 {
		t.Fatalf("slots = %d", len(updated.TimeSlots))
	}

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.ClaimTimeSlot(ctx, d.ID, slot.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, ErrSlotBooked):
			t.Errorf("unexpected: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}

	if err := s.ClaimTimeSlot(ctx, d.ID, primitive.NewObjectID()); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("missing slot: %v", err)
	}
	if err := s.ReleaseTimeSlot(ctx, d.ID, slot.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, _ := s.GetDoctor(ctx, d.ID)
	if got, _ := again.Slot(slot.ID); got.IsBooked {
		t.Error("slot still booked after release")
	}
}

func TestMongoDuplicateEmail(t *testing.T) {
	s := setupMongo(t)
	ctx := context.Background()

	if err := s.CreateDoctor(ctx, &models.Doctor{Name: "A", Email: "dup@example.com"}); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := s.CreateDoctor(ctx, &models.Doctor{Name: "B", Email: "dup@example.com"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("got %v, want ErrDuplicateEmail", err)
	}
}

func TestMongoAppointments(t *testing.T) {
	s := setupMongo(t)
	ctx := context.Background()
	doctor := primitive.NewObjectID()

	for _, day := range []int{10, 12, 11} {
		if err := s.CreateAppointment(ctx, &models.Appointment{
			DoctorID:   doctor,
			PatientID:  primitive.NewObjectID(),
			TimeSlotID: primitive.NewObjectID(),
			Date:       time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
			Time:       "10:00",
			Status:     models.StatusBooked,
			CreatedAt:  time.Now(),
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := s.ListAppointmentsByDoctor(ctx, doctor)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Date.Day() != 12 || list[2].Date.Day() != 10 {
		t.Fatalf("unexpected order: %+v", list)
	}

	if err := s.TransitionAppointmentStatus(ctx, list[0].ID, models.StatusBooked, models.StatusCancelled); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := s.TransitionAppointmentStatus(ctx, list[0].ID, models.StatusBooked, models.StatusCompleted); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("second transition: %v, want ErrStatusChanged", err)
	}
	if err := s.TransitionAppointmentStatus(ctx, primitive.NewObjectID(), models.StatusBooked, models.StatusCancelled); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("missing transition: %v, want ErrAppointmentNotFound", err)
	}
	got, err := s.GetAppointment(ctx, list[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusCancelled {
		t.Errorf("status = %s", got.Status)
	}
	if _, err := s.GetAppointment(ctx, primitive.NewObjectID()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("missing appointment: %v", err)
	}
}
