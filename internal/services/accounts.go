package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harentsoaR/doctor-appointment-api/internal/models"
	"github.com/harentsoaR/doctor-appointment-api/internal/store"
	"github.com/harentsoaR/doctor-appointment-api/internal/utils"
)

type accountStore interface {
	store.DoctorStore
	store.PatientStore
}

type RegisterDoctorInput struct {
	Name           string
	Email          string
	Password       string
	Specialization string
}

type RegisterPatientInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult is what register and login hand back to the client.
type AuthResult struct {
	Token string          `json:"token"`
	User  models.AuthUser `json:"user"`
}

// AccountService registers and authenticates doctors and patients.
type AccountService struct {
	store  accountStore
	tokens *utils.TokenManager
	logger zerolog.Logger
	now    func() time.Time
}

func NewAccountService(s accountStore, tokens *utils.TokenManager, logger zerolog.Logger) *AccountService {
	return &AccountService{
		store:  s,
		tokens: tokens,
		logger: logger.With().Str("component", "accounts").Logger(),
		now:    time.Now,
	}
}

func (s *AccountService) RegisterDoctor(ctx context.Context, in RegisterDoctorInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Specialization == "" {
		return nil, newError(ErrValidation, "All fields are required")
	}

	if _, err := s.store.GetDoctorByEmail(ctx, in.Email); err == nil {
		return nil, newError(ErrConflict, "Doctor already exists")
	} else if !errors.Is(err, store.ErrDoctorNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	doctor := &models.Doctor{
		Name:           in.Name,
		Email:          in.Email,
		Password:       hash,
		Specialization: in.Specialization,
		TimeSlots:      []models.TimeSlot{},
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.CreateDoctor(ctx, doctor); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, newError(ErrConflict, "Doctor already exists")
		}
		return nil, err
	}
	s.logger.Info().Str("doctor_id", doctor.ID.Hex()).Msg("doctor registered")

	return s.issue(doctor.ID.Hex(), doctor.Name, models.RoleDoctor)
}

func (s *AccountService) RegisterPatient(ctx context.Context, in RegisterPatientInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, newError(ErrValidation, "All fields are required")
	}

	if _, err := s.store.GetPatientByEmail(ctx, in.Email); err == nil {
		return nil, newError(ErrConflict, "Patient already exists")
	} else if !errors.Is(err, store.ErrPatientNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	patient := &models.Patient{
		Name:      in.Name,
		Email:     in.Email,
		Password:  hash,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreatePatient(ctx, patient); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, newError(ErrConflict, "Patient already exists")
		}
		return nil, err
	}
	s.logger.Info().Str("patient_id", patient.ID.Hex()).Msg("patient registered")

	return s.issue(patient.ID.Hex(), patient.Name, models.RolePatient)
}

func (s *AccountService) LoginDoctor(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, newError(ErrValidation, "Email and password are required")
	}
	doctor, err := s.store.GetDoctorByEmail(ctx, email)
	if errors.Is(err, store.ErrDoctorNotFound) {
		return nil, newError(ErrUnauthenticated, "Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, doctor.Password) {
		return nil, newError(ErrUnauthenticated, "Invalid credentials")
	}
	return s.issue(doctor.ID.Hex(), doctor.Name, models.RoleDoctor)
}

func (s *AccountService) LoginPatient(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, newError(ErrValidation, "Email and password are required")
	}
	patient, err := s.store.GetPatientByEmail(ctx, email)
	if errors.Is(err, store.ErrPatientNotFound) {
		return nil, newError(ErrUnauthenticated, "Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, patient.Password) {
		return nil, newError(ErrUnauthenticated, "Invalid credentials")
	}
	return s.issue(patient.ID.Hex(), patient.Name, models.RolePatient)
}

func (s *AccountService) issue(id, name, role string) (*AuthResult, error) {
	token, err := s.tokens.GenerateJWT(id, role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{
		Token: token,
		User:  models.AuthUser{ID: id, Name: name, Role: role},
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
