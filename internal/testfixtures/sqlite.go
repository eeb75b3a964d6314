package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/lab-resource-manager/internal/calendar"
	"github.com/example/lab-resource-manager/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated local calendar in a temporary directory with a
// reservation repository on top of it.
type SQLiteHarness struct {
	Store      *sqlite.CalendarStore
	Repository *calendar.Repository
	Access     *calendar.AccessService
}

// NewSQLiteHarness opens the store against the Catalog resources. The store is
// closed when the test ends.
func NewSQLiteHarness(tb testing.TB, clock *Clock) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "calendar.db")
	store, err := sqlite.Open(context.Background(), sqlite.TestConfig(path), "")
	if err != nil {
		tb.Fatalf("failed to open calendar store: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	catalog := Catalog()
	return &SQLiteHarness{
		Store:      store,
		Repository: calendar.NewRepository(store, catalog, store, store.Creator(), calendar.WithClock(clock.NowFunc())),
		Access:     calendar.NewAccessService(store, catalog),
	}
}
