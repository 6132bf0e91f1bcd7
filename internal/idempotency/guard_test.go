package idempotency

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Guard, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	g := NewGuard(sqlxDB, 10*time.Minute)

	closer := func() {
		sqlxDB.Close()
	}

	return g, mock, closer
}

func TestClaimOnceFirst(t *testing.T) {
	g, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processing_claims (key, claimed_at) VALUES ($1, NOW()) ON CONFLICT (key) DO NOTHING")).
		WithArgs("payment:mp_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claim, err := g.ClaimOnce(context.Background(), "payment:mp_1")
	require.NoError(t, err)
	require.True(t, claim.First)
	require.False(t, claim.Resolved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimOnceResolvedReplay(t *testing.T) {
	g, mock, close := setupMock(t)
	defer close()

	resolved := time.Now().Add(-time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processing_claims")).
		WithArgs("payment:mp_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, claimed_at, resolved_at, result FROM processing_claims WHERE key = $1")).
		WithArgs("payment:mp_1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "claimed_at", "resolved_at", "result"}).
			AddRow("payment:mp_1", resolved.Add(-time.Second), resolved, []byte(`{"outcome":"applied"}`)))

	claim, err := g.ClaimOnce(context.Background(), "payment:mp_1")
	require.NoError(t, err)
	require.False(t, claim.First)
	require.True(t, claim.Resolved)
	require.JSONEq(t, `{"outcome":"applied"}`, string(claim.Result))
	require.NoError(t, mock.ExpectationsWereMet())
}

// A recent unresolved claim is neither won nor replayable.
func TestClaimOnceInFlight(t *testing.T) {
	g, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processing_claims")).
		WithArgs("payment:mp_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, claimed_at, resolved_at, result FROM processing_claims WHERE key = $1")).
		WithArgs("payment:mp_1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "claimed_at", "resolved_at", "result"}).
			AddRow("payment:mp_1", time.Now().Add(-time.Minute), nil, nil))

	claim, err := g.ClaimOnce(context.Background(), "payment:mp_1")
	require.NoError(t, err)
	require.False(t, claim.First)
	require.False(t, claim.Resolved)
	require.NoError(t, mock.ExpectationsWereMet())
}

// An abandoned claim past the staleness window is reclaimed through the
// compare-and-swap on claimed_at.
func TestClaimOnceStaleRelease(t *testing.T) {
	g, mock, close := setupMock(t)
	defer close()

	stale := time.Now().Add(-time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processing_claims")).
		WithArgs("payment:mp_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, claimed_at, resolved_at, result FROM processing_claims WHERE key = $1")).
		WithArgs("payment:mp_1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "claimed_at", "resolved_at", "result"}).
			AddRow("payment:mp_1", stale, nil, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE processing_claims SET claimed_at = NOW() WHERE key = $1 AND claimed_at = $2 AND resolved_at IS NULL")).
		WithArgs("payment:mp_1", stale).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claim, err := g.ClaimOnce(context.Background(), "payment:mp_1")
	require.NoError(t, err)
	require.True(t, claim.First)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Losing the stale-claim CAS to a concurrent caller leaves the claim in flight.
func TestClaimOnceStaleCASLost(t *testing.T) {
	g, mock, close := setupMock(t)
	defer close()

	stale := time.Now().Add(-time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processing_claims")).
		WithArgs("payment:mp_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, claimed_at, resolved_at, result FROM processing_claims WHERE key = $1")).
		WithArgs("payment:mp_1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "claimed_at", "resolved_at", "result"}).
			AddRow("payment:mp_1", stale, nil, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE processing_claims SET claimed_at = NOW()")).
		WithArgs("payment:mp_1", stale).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claim, err := g.ClaimOnce(context.Background(), "payment:mp_1")
	require.NoError(t, err)
	require.False(t, claim.First)
	require.False(t, claim.Resolved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreResult(t *testing.T) {
	g, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE processing_claims SET resolved_at = NOW(), result = $2 WHERE key = $1")).
		WithArgs("payment:mp_1", []byte(`{"outcome":"applied"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := g.StoreResult(context.Background(), "payment:mp_1", []byte(`{"outcome":"applied"}`))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
