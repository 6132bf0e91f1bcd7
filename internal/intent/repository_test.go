package intent

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"
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

func intentRows(id int, status Status, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner_id", "kind", "target_ref", "item_id", "price_cents", "correlation_token", "auto_renew", "status", "external_payment_id", "resolved_at", "created_at"}).
		AddRow(id, 1, "boost", "profile_42", "boost_24h", 1500, "3f2c8a1e-0000-0000-0000-000000000001", true, status, nil, nil, now)
}

func TestCreateIntent(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	item, err := catalog.Find("boost_24h")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_intents (owner_id, kind, target_ref, item_id, price_cents, correlation_token, auto_renew, status) VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending') RETURNING")).
		WithArgs(1, "boost", "profile_42", "boost_24h", int64(1500), sqlmock.AnyArg(), true).
		WillReturnRows(intentRows(5, StatusPending, now))

	in, err := repo.Create(context.Background(), 1, item, "profile_42", true)
	require.NoError(t, err)
	require.Equal(t, 5, in.ID)
	require.Equal(t, StatusPending, in.Status)
	require.NotEmpty(t, in.CorrelationToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Auto-renew is forced off for items the catalog marks non-renewable.
func TestCreateIntentNonRenewableItem(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	item, err := catalog.Find("ppv_unlock")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_intents")).
		WithArgs(1, "ppv_unlock", "profile_42", "ppv_unlock", int64(1900), sqlmock.AnyArg(), false).
		WillReturnRows(intentRows(6, StatusPending, time.Now()))

	_, err = repo.Create(context.Background(), 1, item, "profile_42", true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveConfirmed(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()
	token := "3f2c8a1e-0000-0000-0000-000000000001"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_intents WHERE correlation_token = $1 FOR UPDATE")).
		WithArgs(token).
		WillReturnRows(intentRows(5, StatusPending, now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE order_intents SET status = $2, external_payment_id = $3, resolved_at = NOW() WHERE id = $1 RETURNING")).
		WithArgs(5, "confirmed", "mp_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "kind", "target_ref", "item_id", "price_cents", "correlation_token", "auto_renew", "status", "external_payment_id", "resolved_at", "created_at"}).
			AddRow(5, 1, "boost", "profile_42", "boost_24h", 1500, token, true, "confirmed", "mp_1", now, now))
	mock.ExpectCommit()

	in, err := repo.Resolve(context.Background(), token, StatusConfirmed, "mp_1")
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, in.Status)
	require.NotNil(t, in.ExternalPaymentID)
	require.Equal(t, "mp_1", *in.ExternalPaymentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A second resolution returns the stored row untouched.
func TestResolveAlreadyResolved(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	token := "3f2c8a1e-0000-0000-0000-000000000001"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(token).
		WillReturnRows(intentRows(5, StatusConfirmed, time.Now()))
	mock.ExpectRollback()

	in, err := repo.Resolve(context.Background(), token, StatusConfirmed, "mp_2")
	require.ErrorIs(t, err, ErrIntentResolved)
	require.Equal(t, 5, in.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveExpiredIntent(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	token := "3f2c8a1e-0000-0000-0000-000000000001"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(token).
		WillReturnRows(intentRows(5, StatusExpired, time.Now()))
	mock.ExpectRollback()

	_, err := repo.Resolve(context.Background(), token, StatusConfirmed, "mp_1")
	require.ErrorIs(t, err, ErrIntentExpired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveUnknownToken(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.Resolve(context.Background(), "missing", StatusConfirmed, "mp_1")
	require.ErrorIs(t, err, ErrIntentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveRejectsBadOutcome(t *testing.T) {
	repo, _, close := setupMock(t)
	defer close()

	_, err := repo.Resolve(context.Background(), "tok", StatusPending, "mp_1")
	require.Error(t, err)
}

func TestExpireStale(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE order_intents SET status = 'expired', resolved_at = NOW() WHERE status = 'pending' AND created_at < NOW() - $1 * INTERVAL '1 second'")).
		WithArgs(int64(86400)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpireStale(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
