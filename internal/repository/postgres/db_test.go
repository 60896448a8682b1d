package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetPool(t *testing.T) {
	t.Helper()
	reset := func() {
		dbInstance = nil
		dbErr = nil
		once = sync.Once{}
	}
	reset()
	t.Cleanup(reset)
}

func TestNewDB_RepeatsConnectError(t *testing.T) {
	resetPool(t)
	cfg := &config.DatabaseConfig{URL: "postgres://rotation@localhost:notaport/rotation"}

	db, err := NewDB(cfg)
	require.Error(t, err)
	assert.Nil(t, db)

	again, err2 := NewDB(cfg)
	require.Error(t, err2)
	assert.Nil(t, again)
	assert.Equal(t, err.Error(), err2.Error())
}

func TestWithReadTx_CommitsAndRollsBack(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := Wrap(sqlx.NewDb(mockDB, "postgres"))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectCommit()

	err = db.WithReadTx(context.Background(), func(tx *sqlx.Tx) error {
		var n int
		return tx.GetContext(context.Background(), &n, `SELECT 1`)
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = db.WithReadTx(context.Background(), func(*sqlx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
