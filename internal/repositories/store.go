package repositories

import (
	"context"
	"database/sql"
)

// Store groups the repositories behind one handle so a service can run several
// of them in one transaction.
type Store interface {
	Users() UserRepository
	RefreshTokens() RefreshTokenRepository
	PasswordResets() PasswordResetRepository
	Profiles() ProfileRepository
	Measurements() MeasurementRepository

	// WithTx runs fn against a Store whose repositories share one transaction.
	// Calling WithTx on that Store again reuses the same transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type postgresStore struct {
	db *sql.DB
	q  DBTX
}

func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db, q: db}
}

func (s *postgresStore) Users() UserRepository                   { return NewUserRepository(s.q) }
func (s *postgresStore) RefreshTokens() RefreshTokenRepository   { return NewRefreshTokenRepository(s.q) }
func (s *postgresStore) PasswordResets() PasswordResetRepository { return NewPasswordResetRepository(s.q) }
func (s *postgresStore) Profiles() ProfileRepository             { return NewProfileRepository(s.q) }
func (s *postgresStore) Measurements() MeasurementRepository     { return NewMeasurementRepository(s.q) }

func (s *postgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(ctx, s)
	}
	return WithTx(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context, tx DBTX) error {
		return fn(ctx, &postgresStore{db: s.db, q: tx})
	})
}
