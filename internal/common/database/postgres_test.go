package database

import (
	"context"
	"errors"
	"testing"

	"candidate-portal/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchema(t *testing.T) {
	cfg := config.PostgresConfig{Table: "candidates", ActivityTable: "activity_events"}

	t.Run("creates both tables", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS candidates").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS activity_events").WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, EnsureSchema(context.Background(), db, cfg))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops at first failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS candidates").WillReturnError(errors.New("permission denied"))

		err = EnsureSchema(context.Background(), db, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema migration failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
