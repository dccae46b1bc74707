package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nurseconnect-registration/internal/referral"
)

func setupRepository(t *testing.T) (*ReferralRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewReferralRepository(db), mock
}

var linkColumns = []string{"id", "msisdn", "created_at"}

func TestGetByMSISDN(t *testing.T) {
	repo, mock := setupRepository(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, msisdn, created_at FROM referral_links WHERE msisdn = $1`)).
		WithArgs("+27820001001").
		WillReturnRows(sqlmock.NewRows(linkColumns).AddRow(int64(7), "+27820001001", now))

	link, err := repo.GetByMSISDN(context.Background(), "+27820001001")
	require.NoError(t, err)
	assert.Equal(t, int64(7), link.ID)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM referral_links WHERE id = $1`)).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, referral.ErrNotFound)
}

func TestCreate(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO referral_links (msisdn) VALUES ($1)`)).
		WithArgs("+27820001001").
		WillReturnRows(sqlmock.NewRows(linkColumns).AddRow(int64(1), "+27820001001", time.Now()))

	link, err := repo.Create(context.Background(), "+27820001001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), link.ID)
}

func TestCreateConflictIsDuplicate(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO referral_links`)).
		WithArgs("+27820001001").
		WillReturnRows(sqlmock.NewRows(linkColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO referral_links`)).
		WithArgs("+27820001001").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), "+27820001001")
	assert.ErrorIs(t, err, referral.ErrDuplicate)

	_, err = repo.Create(context.Background(), "+27820001001")
	assert.ErrorIs(t, err, referral.ErrDuplicate)
}

func TestCreateOrGetThroughService(t *testing.T) {
	repo, mock := setupRepository(t)
	codec, err := referral.NewCodec("secret")
	require.NoError(t, err)
	svc := referral.NewService(repo, codec, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE msisdn = $1`)).
		WithArgs("+27820001001").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO referral_links`)).
		WithArgs("+27820001001").
		WillReturnRows(sqlmock.NewRows(linkColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE msisdn = $1`)).
		WithArgs("+27820001001").
		WillReturnRows(sqlmock.NewRows(linkColumns).AddRow(int64(3), "+27820001001", time.Now()))

	link, err := svc.CreateOrGet(context.Background(), "+27820001001")
	require.NoError(t, err)
	assert.Equal(t, int64(3), link.ID)
}
