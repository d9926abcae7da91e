package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"reservation-engine/internal/repository"
)

type Store struct {
	db *sql.DB
	repository.ReservationRepository
	repository.AssetRepository
	repository.IdentityRepository
	repository.PaymentRepository
	repository.ReconciliationRepository
}

func NewStore(db *sql.DB, retry RetryPolicy) *Store {
	return &Store{
		db:                       db,
		ReservationRepository:    NewReservationRepository(db, retry),
		AssetRepository:          NewAssetRepository(db, retry),
		IdentityRepository:       NewIdentityRepository(db, retry),
		PaymentRepository:        NewPaymentRepository(db, retry),
		ReconciliationRepository: NewReconciliationRepository(db, retry),
	}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// RunMigrations applies every pending migration found in dir.
func RunMigrations(db *sql.DB, dir string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{
		MigrationsTable: "reservation_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}
