package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/doctor-appointment-api/internal/handlers"
	"github.com/harentsoaR/doctor-appointment-api/internal/services"
	"github.com/harentsoaR/doctor-appointment-api/internal/store"
	"github.com/harentsoaR/doctor-appointment-api/internal/utils"
)

type authResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"user"`
}

type slotJSON struct {
	ID       string    `json:"_id"`
	Date     time.Time `json:"date"`
	Time     string    `json:"time"`
	IsBooked bool      `json:"isBooked"`
}

type appointmentJSON struct {
	ID         string `json:"_id"`
	TimeSlotID string `json:"timeSlotId"`
	Status     string `json:"status"`
	Time       string `json:"time"`
}

func setup(t *testing.T) (*gin.Engine, *utils.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	tokens := utils.NewTokenManager("test-secret", 7*24*time.Hour)
	logger := zerolog.Nop()
	h := handlers.NewHandler(
		services.NewAccountService(st, tokens, logger),
		services.NewBookingService(st, logger),
		logger,
	)

	r := gin.New()
	h.Register(r, tokens, nil)
	return r, tokens
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, want, rec.Body.String())
	}
}

func registerDoctor(t *testing.T, r http.Handler, email string) authResponse {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/api/auth/doctor/register", "", map[string]string{
		"name": "Dr. John", "email": email, "password": "password123", "specialization": "Cardiology",
	})
	expectStatus(t, rec, http.StatusCreated)
	var res authResponse
	decode(t, rec, &res)
	return res
}

func registerPatient(t *testing.T, r http.Handler, email string) authResponse {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/api/auth/patient/register", "", map[string]string{
		"name": "John Patient", "email": email, "password": "password123",
	})
	expectStatus(t, rec, http.StatusCreated)
	var res authResponse
	decode(t, rec, &res)
	return res
}

func addSlot(t *testing.T, r http.Handler, doc authResponse, date, label string) slotJSON {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/api/doctors/"+doc.User.ID+"/add-slot", doc.Token, map[string]string{
		"date": date, "time": label,
	})
	expectStatus(t, rec, http.StatusOK)
	var res struct {
		Doctor struct {
			TimeSlots []slotJSON `json:"timeSlots"`
		} `json:"doctor"`
	}
	decode(t, rec, &res)
	return res.Doctor.TimeSlots[len(res.Doctor.TimeSlots)-1]
}

func TestHealth(t *testing.T) {
	r, _ := setup(t)
	rec := do(t, r, http.MethodGet, "/health", "", nil)
	expectStatus(t, rec, http.StatusOK)

	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "Backend is running" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestAuthFlow(t *testing.T) {
	r, tokens := setup(t)

	doc := registerDoctor(t, r, "john@example.com")
	if doc.Token == "" || doc.User.Role != "doctor" {
		t.Fatalf("register response = %+v", doc)
	}

	rec := do(t, r, http.MethodPost, "/api/auth/doctor/register", "", map[string]string{
		"name": "Dr. John", "email": "john@example.com",
	})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, r, http.MethodPost, "/api/auth/doctor/register", "", map[string]string{
		"name": "Dr. Again", "email": "john@example.com", "password": "x", "specialization": "ENT",
	})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, r, http.MethodPost, "/api/auth/doctor/login", "", map[string]string{
		"email": "john@example.com", "password": "password123",
	})
	expectStatus(t, rec, http.StatusOK)
	var login authResponse
	decode(t, rec, &login)
	claims, err := tokens.ValidateJWT(login.Token)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if claims.Role != "doctor" || claims.UserID != doc.User.ID {
		t.Errorf("claims = %+v", claims)
	}

	rec = do(t, r, http.MethodPost, "/api/auth/doctor/login", "", map[string]string{
		"email": "john@example.com", "password": "wrongpassword",
	})
	expectStatus(t, rec, http.StatusUnauthorized)
	var failed authResponse
	decode(t, rec, &failed)
	if failed.Token != "" {
		t.Error("failed login returned a token")
	}

	pat := registerPatient(t, r, "patient@example.com")
	if pat.User.Role != "patient" {
		t.Errorf("patient role = %q", pat.User.Role)
	}
}

func TestDoctorRoutes(t *testing.T) {
	r, _ := setup(t)
	doc := registerDoctor(t, r, "john@example.com")
	other := registerDoctor(t, r, "jane@example.com")
	pat := registerPatient(t, r, "patient@example.com")

	rec := do(t, r, http.MethodGet, "/api/doctors", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Error("doctor list leaks passwords")
	}
	var doctors []map[string]any
	decode(t, rec, &doctors)
	if len(doctors) != 2 {
		t.Errorf("doctors = %d, want 2", len(doctors))
	}

	expectStatus(t, do(t, r, http.MethodGet, "/api/doctors/"+doc.User.ID, "", nil), http.StatusOK)
	expectStatus(t, do(t, r, http.MethodGet, "/api/doctors/"+primitive.NewObjectID().Hex(), "", nil), http.StatusNotFound)
	expectStatus(t, do(t, r, http.MethodGet, "/api/doctors/not-an-id/slots", "", nil), http.StatusNotFound)

	slotBody := map[string]string{"date": "2024-01-10", "time": "10:00"}
	path := "/api/doctors/" + doc.User.ID + "/add-slot"
	expectStatus(t, do(t, r, http.MethodPost, path, "", slotBody), http.StatusUnauthorized)
	expectStatus(t, do(t, r, http.MethodPost, path, pat.Token, slotBody), http.StatusForbidden)
	expectStatus(t, do(t, r, http.MethodPost, path, other.Token, slotBody), http.StatusForbidden)
	expectStatus(t, do(t, r, http.MethodPost, path, doc.Token, map[string]string{"date": "2024-01-10"}), http.StatusBadRequest)
	expectStatus(t, do(t, r, http.MethodPost, path, doc.Token, slotBody), http.StatusOK)
}

func TestBookingRoutes(t *testing.T) {
	r, _ := setup(t)
	doc := registerDoctor(t, r, "john@example.com")
	pat := registerPatient(t, r, "patient@example.com")
	slot := addSlot(t, r, doc, "2024-01-10", "10:00")

	book := map[string]string{"doctorId": doc.User.ID, "timeSlotId": slot.ID, "date": "2024-01-10", "time": "10:00"}

	expectStatus(t, do(t, r, http.MethodPost, "/api/appointments/book", doc.Token, book), http.StatusForbidden)
	expectStatus(t, do(t, r, http.MethodPost, "/api/appointments/book", pat.Token, map[string]string{"doctorId": doc.User.ID}), http.StatusBadRequest)
	expectStatus(t, do(t, r, http.MethodPost, "/api/appointments/book", pat.Token, map[string]string{
		"doctorId": doc.User.ID, "timeSlotId": primitive.NewObjectID().Hex(), "date": "2024-01-10", "time": "10:00",
	}), http.StatusNotFound)

	rec := do(t, r, http.MethodPost, "/api/appointments/book", pat.Token, book)
	expectStatus(t, rec, http.StatusCreated)
	var booked struct {
		Appointment appointmentJSON `json:"appointment"`
	}
	decode(t, rec, &booked)
	if booked.Appointment.Status != "booked" {
		t.Errorf("status = %q", booked.Appointment.Status)
	}

	rec = do(t, r, http.MethodPost, "/api/appointments/book", pat.Token, book)
	expectStatus(t, rec, http.StatusBadRequest)
	var conflict map[string]string
	decode(t, rec, &conflict)
	if conflict["message"] != "Slot is already booked" {
		t.Errorf("message = %q", conflict["message"])
	}

	stranger := registerPatient(t, r, "stranger@example.com")
	cancelPath := "/api/appointments/" + booked.Appointment.ID + "/cancel"
	expectStatus(t, do(t, r, http.MethodPut, cancelPath, stranger.Token, nil), http.StatusForbidden)
	expectStatus(t, do(t, r, http.MethodPut, "/api/appointments/"+primitive.NewObjectID().Hex()+"/cancel", pat.Token, nil), http.StatusNotFound)

	completePath := "/api/appointments/" + booked.Appointment.ID + "/complete"
	expectStatus(t, do(t, r, http.MethodPut, completePath, pat.Token, nil), http.StatusForbidden)
	rec = do(t, r, http.MethodPut, completePath, doc.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	var completed struct {
		Appointment appointmentJSON `json:"appointment"`
	}
	decode(t, rec, &completed)
	if completed.Appointment.Status != "completed" {
		t.Errorf("status = %q", completed.Appointment.Status)
	}
	expectStatus(t, do(t, r, http.MethodPut, cancelPath, pat.Token, nil), http.StatusBadRequest)
}

func TestConcurrentBookingOverHTTP(t *testing.T) {
	r, _ := setup(t)
	doc := registerDoctor(t, r, "john@example.com")
	slot := addSlot(t, r, doc, "2024-01-10", "10:00")
	a := registerPatient(t, r, "a@example.com")
	b := registerPatient(t, r, "b@example.com")

	book := map[string]string{"doctorId": doc.User.ID, "timeSlotId": slot.ID, "date": "2024-01-10", "time": "10:00"}
	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i, tok := range []string{a.Token, b.Token} {
		wg.Add(1)
		go func(i int, tok string) {
			defer wg.Done()
			codes[i] = do(t, r, http.MethodPost, "/api/appointments/book", tok, book).Code
		}(i, tok)
	}
	wg.Wait()

	created, rejected := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
			rejected++
		}
	}
	if created != 1 || rejected != 1 {
		t.Fatalf("codes = %v, want one 201 and one 400", codes)
	}

	rec := do(t, r, http.MethodGet, "/api/appointments/doctor/my-appointments", doc.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	var list []appointmentJSON
	decode(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("appointments = %d, want 1", len(list))
	}
}

// Register a doctor, add a slot, let a patient book and cancel it, and check
// the slot is offered again.
func TestEndToEndScenario(t *testing.T) {
	r, _ := setup(t)

	doc := registerDoctor(t, r, "john@example.com")
	slot := addSlot(t, r, doc, "2024-01-10", "10:00")
	pat := registerPatient(t, r, "patient@example.com")

	rec := do(t, r, http.MethodPost, "/api/appointments/book", pat.Token, map[string]string{
		"doctorId": doc.User.ID, "timeSlotId": slot.ID, "date": "2024-01-10", "time": "10:00",
	})
	expectStatus(t, rec, http.StatusCreated)
	var booked struct {
		Appointment appointmentJSON `json:"appointment"`
	}
	decode(t, rec, &booked)

	rec = do(t, r, http.MethodGet, "/api/doctors/"+doc.User.ID+"/slots", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var slots []slotJSON
	decode(t, rec, &slots)
	if len(slots) != 0 {
		t.Fatalf("booked slot still offered: %+v", slots)
	}

	rec = do(t, r, http.MethodGet, "/api/appointments/doctor/my-appointments", doc.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	var doctorView []struct {
		ID        string `json:"_id"`
		PatientID struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"patientId"`
	}
	decode(t, rec, &doctorView)
	if len(doctorView) != 1 || doctorView[0].PatientID.Name != "John Patient" {
		t.Fatalf("doctor view = %+v", doctorView)
	}

	rec = do(t, r, http.MethodGet, "/api/appointments/patient/my-appointments", pat.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	var patientView []struct {
		DoctorID struct {
			Name           string `json:"name"`
			Specialization string `json:"specialization"`
		} `json:"doctorId"`
	}
	decode(t, rec, &patientView)
	if len(patientView) != 1 || patientView[0].DoctorID.Name != "Dr. John" {
		t.Fatalf("patient view = %+v", patientView)
	}

	rec = do(t, r, http.MethodPut, "/api/appointments/"+booked.Appointment.ID+"/cancel", pat.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	var cancelled struct {
		Appointment appointmentJSON `json:"appointment"`
	}
	decode(t, rec, &cancelled)
	if cancelled.Appointment.Status != "cancelled" {
		t.Errorf("status = %q", cancelled.Appointment.Status)
	}

	rec = do(t, r, http.MethodGet, "/api/doctors/"+doc.User.ID+"/slots", "", nil)
	expectStatus(t, rec, http.StatusOK)
	slots = nil
	decode(t, rec, &slots)
	if len(slots) != 1 || slots[0].ID != slot.ID || slots[0].Time != "10:00" ||
		!slots[0].Date.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("released slot not offered again: %+v", slots)
	}
}
