package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safouanmatmati/ratingboard/internal/blob"
	"github.com/safouanmatmati/ratingboard/pkg/database"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	return database.NewMockPool(t)
}

func TestStore_Get_Success(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(`SELECT value FROM blobs WHERE key = \$1`).
		WithArgs("ratings").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(`{"1":{}}`))

	got, err := store.Get(context.Background(), "ratings")
	require.NoError(t, err)
	assert.Equal(t, `{"1":{}}`, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_NotFound(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(`SELECT value FROM blobs WHERE key = \$1`).
		WithArgs("ratings").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "ratings")
	assert.ErrorIs(t, err, blob.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_QueryError(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectQuery(`SELECT value FROM blobs`).
		WithArgs("ratings").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), "ratings")
	require.Error(t, err)
	assert.NotErrorIs(t, err, blob.ErrNotFound)
	assert.Contains(t, err.Error(), "select blob ratings")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Set_Upserts(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectExec(`INSERT INTO blobs`).
		WithArgs("ratings", `{}`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Set(context.Background(), "ratings", `{}`))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Set_ExecError(t *testing.T) {
	mock := newMock(t)
	store := NewStore(mock)

	mock.ExpectExec(`INSERT INTO blobs`).
		WithArgs("ratings", `{}`).
		WillReturnError(errors.New("disk full"))

	err := store.Set(context.Background(), "ratings", `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert blob ratings")
	assert.NoError(t, mock.ExpectationsWereMet())
}
