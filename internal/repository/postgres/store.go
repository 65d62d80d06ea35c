package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/longevaiapp/EVEREST-sub000/internal/repository"
)

// Store implements repository.Store on PostgreSQL. Repositories obtained from
// a transactional view run every statement on that transaction.
type Store struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
	tx  *sqlx.Tx
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db}
}

// DB returns the database instance
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Patients() repository.PatientRepository { return &patientRepository{s.ext} }

func (s *Store) Tasks() repository.TaskRepository { return &taskRepository{s.ext} }

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepository{s.ext}
}

func (s *Store) Hospitalizations() repository.HospitalizationRepository {
	return &hospitalizationRepository{s.ext}
}

func (s *Store) Outbox() repository.OutboxRepository { return &outboxRepository{s.ext} }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

// WithTx executes a function within a transaction
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &Store{db: s.db, ext: tx, tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
