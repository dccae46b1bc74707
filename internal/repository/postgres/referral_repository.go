package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"nurseconnect-registration/internal/config"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/referral"
	"nurseconnect-registration/internal/util"
)

// Schema creates the referral link table. Migrations are applied out of band.
const Schema = `
CREATE TABLE IF NOT EXISTS referral_links (
    id         BIGSERIAL PRIMARY KEY,
    msisdn     VARCHAR(12) NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const uniqueViolation = "23505"

// ReferralRepository stores referral links in PostgreSQL. Uniqueness of the
// MSISDN is enforced by the table constraint.
type ReferralRepository struct {
	db *sql.DB
}

// Open connects to PostgreSQL with the lib/pq driver and pings it.
func Open(cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	util.Info("PostgreSQL connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns))
	return db, nil
}

func NewReferralRepository(db *sql.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) GetByID(ctx context.Context, id int64) (*models.ReferralLink, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`SELECT id, msisdn, created_at FROM referral_links WHERE id = $1`, id)
	return scanLink(row)
}

func (r *ReferralRepository) GetByMSISDN(ctx context.Context, msisdn string) (*models.ReferralLink, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`SELECT id, msisdn, created_at FROM referral_links WHERE msisdn = $1`, msisdn)
	return scanLink(row)
}

// Create inserts a link. A conflicting MSISDN yields referral.ErrDuplicate.
func (r *ReferralRepository) Create(ctx context.Context, msisdn string) (*models.ReferralLink, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO referral_links (msisdn) VALUES ($1)
		 ON CONFLICT (msisdn) DO NOTHING
		 RETURNING id, msisdn, created_at`, msisdn)

	link, err := scanLink(row)
	if errors.Is(err, referral.ErrNotFound) {
		return nil, referral.ErrDuplicate
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, referral.ErrDuplicate
		}
		util.Error("Failed to create referral link",
			util.MSISDN("msisdn", msisdn),
			zap.Error(err))
		return nil, err
	}
	return link, nil
}

func (r *ReferralRepository) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureSchema applies Schema. Used by local development and tests.
func (r *ReferralRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create referral_links: %w", err)
	}
	return nil
}

func scanLink(row *sql.Row) (*models.ReferralLink, error) {
	var link models.ReferralLink
	if err := row.Scan(&link.ID, &link.MSISDN, &link.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, referral.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan referral link: %w", err)
	}
	return &link, nil
}
