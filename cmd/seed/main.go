package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/doctor-appointment-api/internal/config"
	"github.com/harentsoaR/doctor-appointment-api/internal/logging"
	"github.com/harentsoaR/doctor-appointment-api/internal/services"
	"github.com/harentsoaR/doctor-appointment-api/internal/store"
	"github.com/harentsoaR/doctor-appointment-api/internal/utils"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

type seedOptions struct {
	doctors  int
	patients int
	slots    int
	days     int
	password string
}

func main() {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with fake doctors, free time slots and patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.doctors, "doctors", 10, "number of doctors")
	cmd.Flags().IntVar(&opts.patients, "patients", 20, "number of patients")
	cmd.Flags().IntVar(&opts.slots, "slots", 8, "free slots per doctor")
	cmd.Flags().IntVar(&opts.days, "days", 14, "spread slots over this many days from today")
	cmd.Flags().StringVar(&opts.password, "password", "password123", "password for every seeded account")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts seedOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StorageDriver != config.DriverMongo {
		return errors.New("seeding needs STORAGE_DRIVER=mongo")
	}
	logger, _ := logging.New(cfg.LogLevel, "")

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer client.Disconnect(context.Background())

	st := store.NewMongoStore(client.Database(cfg.MongoDatabase))
	if err := st.EnsureIndexes(connectCtx); err != nil {
		return err
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	accounts := services.NewAccountService(st, tokens, zerolog.Nop())
	booking := services.NewBookingService(st, zerolog.Nop())
	faker := gofakeit.New(0)

	logger.Info().Int("count", opts.doctors).Msg("seeding doctors")
	for i := 0; i < opts.doctors; i++ {
		res, err := accounts.RegisterDoctor(ctx, services.RegisterDoctorInput{
			Name:           "Dr. " + faker.Name(),
			Email:          faker.Email(),
			Password:       opts.password,
			Specialization: specialties[faker.Number(0, len(specialties)-1)],
		})
		if errors.Is(err, services.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("register doctor: %w", err)
		}

		today := time.Now().UTC().Truncate(24 * time.Hour)
		for j := 0; j < opts.slots; j++ {
			day := today.AddDate(0, 0, faker.Number(1, max(opts.days, 1)))
			label := fmt.Sprintf("%02d:00", faker.Number(9, 16))
			if _, err := booking.AddSlot(ctx, res.User.ID, res.User.ID, day.Format("2006-01-02"), label); err != nil {
				return fmt.Errorf("add slot: %w", err)
			}
		}
	}

	logger.Info().Int("count", opts.patients).Msg("seeding patients")
	for i := 0; i < opts.patients; i++ {
		_, err := accounts.RegisterPatient(ctx, services.RegisterPatientInput{
			Name:     faker.Name(),
			Email:    faker.Email(),
			Password: opts.password,
		})
		if err != nil && !errors.Is(err, services.ErrConflict) {
			return fmt.Errorf("register patient: %w", err)
		}
	}

	logger.Info().Msg("seed complete")
	return nil
}
