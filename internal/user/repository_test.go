package user

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() {
		sqlxDB.Close()
	}

	return repo, mock, closer
}

func userRows(id int, email, code string, referredBy interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "referral_code", "referred_by", "created_at"}).
		AddRow(id, "Ana", email, "$2a$10$hash", "seller", code, referredBy, time.Now())
}

func TestCreateUser(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	referrer := 9
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (name, email, password_hash, role, referral_code, referred_by) VALUES ($1, $2, $3, $4, $5, $6) RETURNING")).
		WithArgs("Ana", "ana@example.com", "$2a$10$hash", "seller", "abc123", &referrer).
		WillReturnRows(userRows(2, "ana@example.com", "abc123", 9))

	u, err := repo.Create(context.Background(), "Ana", "ana@example.com", "$2a$10$hash", "seller", "abc123", &referrer)
	require.NoError(t, err)
	require.Equal(t, 2, u.ID)
	require.NotNil(t, u.ReferredBy)
	require.Equal(t, 9, *u.ReferredBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmail(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, password_hash, role, referral_code, referred_by, created_at FROM users WHERE email = $1")).
		WithArgs("ana@example.com").
		WillReturnRows(userRows(1, "ana@example.com", "abc123", nil))

	u, err := repo.FindByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, 1, u.ID)
	require.Nil(t, u.ReferredBy)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.FindByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByReferralCode(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE referral_code = $1")).
		WithArgs("abc123").
		WillReturnRows(userRows(1, "ana@example.com", "abc123", nil))

	u, err := repo.FindByReferralCode(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "abc123", u.ReferralCode)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE referral_code = $1")).
		WithArgs("naoexiste").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.FindByReferralCode(context.Background(), "naoexiste")
	require.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailExists(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)")).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.EmailExists(context.Background(), "ana@example.com")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
