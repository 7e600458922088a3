package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/harentsoaR/doctor-appointment-api/internal/models"
)

const (
	doctorsCollection      = "doctors"
	patientsCollection     = "patients"
	appointmentsCollection = "appointments"
)

type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the unique email indexes and the lookup indexes used
// by the appointment lists.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	if _, err := s.db.Collection(doctorsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}}, Options: unique,
	}); err != nil {
		return fmt.Errorf("doctors email index: %w", err)
	}
	if _, err := s.db.Collection(patientsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}}, Options: unique,
	}); err != nil {
		return fmt.Errorf("patients email index: %w", err)
	}
	if _, err := s.db.Collection(appointmentsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "date", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("appointments indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

// --- Doctors ---

func (s *MongoStore) CreateDoctor(ctx context.Context, d *models.Doctor) error {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	if d.TimeSlots == nil {
		d.TimeSlots = []models.TimeSlot{}
	}
	if _, err := s.db.Collection(doctorsCollection).InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

func (s *MongoStore) GetDoctor(ctx context.Context, id primitive.ObjectID) (*models.Doctor, error) {
	return s.findDoctor(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	return s.findDoctor(ctx, bson.M{"email": email})
}

func (s *MongoStore) findDoctor(ctx context.Context, filter bson.M) (*models.Doctor, error) {
	var d models.Doctor
	err := s.db.Collection(doctorsCollection).FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find doctor: %w", err)
	}
	return &d, nil
}

func (s *MongoStore) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	cursor, err := s.db.Collection(doctorsCollection).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"password": 0}))
	if err != nil {
		return nil, fmt.Errorf("find doctors: %w", err)
	}
	defer cursor.Close(ctx)

	doctors := make([]models.Doctor, 0)
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, fmt.Errorf("decode doctors: %w", err)
	}
	return doctors, nil
}

func (s *MongoStore) GetDoctorsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Doctor, error) {
	out := make(map[primitive.ObjectID]models.Doctor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := s.db.Collection(doctorsCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "specialization": 1, "email": 1}))
	if err != nil {
		return nil, fmt.Errorf("find doctors by id: %w", err)
	}
	defer cursor.Close(ctx)

	var doctors []models.Doctor
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, fmt.Errorf("decode doctors: %w", err)
	}
	for _, d := range doctors {
		out[d.ID] = d
	}
	return out, nil
}

func (s *MongoStore) AddTimeSlot(ctx context.Context, doctorID primitive.ObjectID, slot models.TimeSlot) (*models.Doctor, error) {
	if slot.ID.IsZero() {
		slot.ID = primitive.NewObjectID()
	}
	var d models.Doctor
	err := s.db.Collection(doctorsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": doctorID},
		bson.M{"$push": bson.M{"timeSlots": slot}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("push time slot: %w", err)
	}
	return &d, nil
}

func (s *MongoStore) ClaimTimeSlot(ctx context.Context, doctorID, slotID primitive.ObjectID) error {
	res, err := s.db.Collection(doctorsCollection).UpdateOne(ctx,
		bson.M{
			"_id":       doctorID,
			"timeSlots": bson.M{"$elemMatch": bson.M{"_id": slotID, "isBooked": false}},
		},
		bson.M{"$set": bson.M{"timeSlots.$.isBooked": true}},
	)
	if err != nil {
		return fmt.Errorf("claim time slot: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	// Nothing matched: find out why.
	d, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return err
	}
	if _, ok := d.Slot(slotID); !ok {
		return ErrSlotNotFound
	}
	return ErrSlotBooked
}

func (s *MongoStore) ReleaseTimeSlot(ctx context.Context, doctorID, slotID primitive.ObjectID) error {
	res, err := s.db.Collection(doctorsCollection).UpdateOne(ctx,
		bson.M{"_id": doctorID, "timeSlots._id": slotID},
		bson.M{"$set": bson.M{"timeSlots.$.isBooked": false}},
	)
	if err != nil {
		return fmt.Errorf("release time slot: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// --- Patients ---

func (s *MongoStore) CreatePatient(ctx context.Context, p *models.Patient) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := s.db.Collection(patientsCollection).InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (s *MongoStore) GetPatient(ctx context.Context, id primitive.ObjectID) (*models.Patient, error) {
	return s.findPatient(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetPatientByEmail(ctx context.Context, email string) (*models.Patient, error) {
	return s.findPatient(ctx, bson.M{"email": email})
}

func (s *MongoStore) findPatient(ctx context.Context, filter bson.M) (*models.Patient, error) {
	var p models.Patient
	err := s.db.Collection(patientsCollection).FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return &p, nil
}

func (s *MongoStore) GetPatientsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Patient, error) {
	out := make(map[primitive.ObjectID]models.Patient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := s.db.Collection(patientsCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "email": 1}))
	if err != nil {
		return nil, fmt.Errorf("find patients by id: %w", err)
	}
	defer cursor.Close(ctx)

	var patients []models.Patient
	if err := cursor.All(ctx, &patients); err != nil {
		return nil, fmt.Errorf("decode patients: %w", err)
	}
	for _, p := range patients {
		out[p.ID] = p
	}
	return out, nil
}

// --- Appointments ---

func (s *MongoStore) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if _, err := s.db.Collection(appointmentsCollection).InsertOne(ctx, a); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *MongoStore) GetAppointment(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	var a models.Appointment
	err := s.db.Collection(appointmentsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &a, nil
}

func (s *MongoStore) TransitionAppointmentStatus(ctx context.Context, id primitive.ObjectID, from, to models.AppointmentStatus) error {
	res, err := s.db.Collection(appointmentsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if _, err := s.GetAppointment(ctx, id); err != nil {
		return err
	}
	return ErrStatusChanged
}

func (s *MongoStore) ListAppointmentsByPatient(ctx context.Context, patientID primitive.ObjectID) ([]models.Appointment, error) {
	return s.listAppointments(ctx, bson.M{"patientId": patientID})
}

func (s *MongoStore) ListAppointmentsByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]models.Appointment, error) {
	return s.listAppointments(ctx, bson.M{"doctorId": doctorID})
}

func (s *MongoStore) listAppointments(ctx context.Context, filter bson.M) ([]models.Appointment, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}})
	cursor, err := s.db.Collection(appointmentsCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find appointments: %w", err)
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}
	return appointments, nil
}
