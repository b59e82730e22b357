// Package testdb opens throwaway databases for tests.
package testdb

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/pkg/db"
)

// DSN returns a private in-memory SQLite database with foreign keys on.
func DSN() string {
	return fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
}

// Open returns a migrated in-memory database closed at test cleanup.
func Open(tb testing.TB) *gorm.DB {
	tb.Helper()

	gdb, err := db.Open(context.Background(), DSN())
	require.NoError(tb, err)
	require.NoError(tb, gdb.AutoMigrate(models.All()...))

	tb.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}
