package store

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/doctor-appointment-api/internal/models"
)

// MemoryStore keeps everything in process. It backs STORAGE_DRIVER=memory
// and the tests; a single mutex serialises every write so ClaimTimeSlot has
// the same single-winner behaviour as the Mongo conditional update.
type MemoryStore struct {
	mu           sync.RWMutex
	doctors      map[primitive.ObjectID]*models.Doctor
	doctorOrder  []primitive.ObjectID
	patients     map[primitive.ObjectID]*models.Patient
	appointments map[primitive.ObjectID]*models.Appointment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		doctors:      make(map[primitive.ObjectID]*models.Doctor),
		patients:     make(map[primitive.ObjectID]*models.Patient),
		appointments: make(map[primitive.ObjectID]*models.Appointment),
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func copyDoctor(d *models.Doctor) *models.Doctor {
	c := *d
	c.TimeSlots = append([]models.TimeSlot{}, d.TimeSlots...)
	return &c
}

// --- Doctors ---

func (s *MemoryStore) CreateDoctor(_ context.Context, d *models.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.doctors {
		if existing.Email == d.Email {
			return ErrDuplicateEmail
		}
	}
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	if d.TimeSlots == nil {
		d.TimeSlots = []models.TimeSlot{}
	}
	s.doctors[d.ID] = copyDoctor(d)
	s.doctorOrder = append(s.doctorOrder, d.ID)
	return nil
}

func (s *MemoryStore) GetDoctor(_ context.Context, id primitive.ObjectID) (*models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return copyDoctor(d), nil
}

func (s *MemoryStore) GetDoctorByEmail(_ context.Context, email string) (*models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.doctors {
		if d.Email == email {
			return copyDoctor(d), nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (s *MemoryStore) ListDoctors(context.Context) ([]models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doctors := make([]models.Doctor, 0, len(s.doctorOrder))
	for _, id := range s.doctorOrder {
		d := copyDoctor(s.doctors[id])
		d.Password = ""
		doctors = append(doctors, *d)
	}
	return doctors, nil
}

func (s *MemoryStore) GetDoctorsByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[primitive.ObjectID]models.Doctor, len(ids))
	for _, id := range ids {
		if d, ok := s.doctors[id]; ok {
			out[id] = *copyDoctor(d)
		}
	}
	return out, nil
}

func (s *MemoryStore) AddTimeSlot(_ context.Context, doctorID primitive.ObjectID, slot models.TimeSlot) (*models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[doctorID]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	if slot.ID.IsZero() {
		slot.ID = primitive.NewObjectID()
	}
	d.TimeSlots = append(d.TimeSlots, slot)
	return copyDoctor(d), nil
}

func (s *MemoryStore) ClaimTimeSlot(_ context.Context, doctorID, slotID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[doctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	slot, ok := d.Slot(slotID)
	if !ok {
		return ErrSlotNotFound
	}
	if slot.IsBooked {
		return ErrSlotBooked
	}
	slot.IsBooked = true
	return nil
}

func (s *MemoryStore) ReleaseTimeSlot(_ context.Context, doctorID, slotID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[doctorID]
	if !ok {
		return ErrSlotNotFound
	}
	slot, ok := d.Slot(slotID)
	if !ok {
		return ErrSlotNotFound
	}
	slot.IsBooked = false
	return nil
}

// --- Patients ---

func (s *MemoryStore) CreatePatient(_ context.Context, p *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.patients {
		if existing.Email == p.Email {
			return ErrDuplicateEmail
		}
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	c := *p
	s.patients[p.ID] = &c
	return nil
}

func (s *MemoryStore) GetPatient(_ context.Context, id primitive.ObjectID) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) GetPatientByEmail(_ context.Context, email string) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.patients {
		if p.Email == email {
			c := *p
			return &c, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (s *MemoryStore) GetPatientsByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[primitive.ObjectID]models.Patient, len(ids))
	for _, id := range ids {
		if p, ok := s.patients[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

// --- Appointments ---

func (s *MemoryStore) CreateAppointment(_ context.Context, a *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	c := *a
	s.appointments[a.ID] = &c
	return nil
}

func (s *MemoryStore) GetAppointment(_ context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	c := *a
	return &c, nil
}

func (s *MemoryStore) TransitionAppointmentStatus(_ context.Context, id primitive.ObjectID, from, to models.AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	if a.Status != from {
		return ErrStatusChanged
	}
	a.Status = to
	return nil
}

func (s *MemoryStore) ListAppointmentsByPatient(_ context.Context, patientID primitive.ObjectID) ([]models.Appointment, error) {
	return s.listAppointments(func(a *models.Appointment) bool { return a.PatientID == patientID }), nil
}

func (s *MemoryStore) ListAppointmentsByDoctor(_ context.Context, doctorID primitive.ObjectID) ([]models.Appointment, error) {
	return s.listAppointments(func(a *models.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (s *MemoryStore) listAppointments(match func(*models.Appointment) bool) []models.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Appointment, 0)
	for _, a := range s.appointments {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}
