package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lysyi3m/signal-comb/app/database"
)

// NewDB opens a migrated sqlite database inside the test's temp directory.
func NewDB(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// Repos bundles the three repositories over one test database.
type Repos struct {
	DB      *database.DB
	Sources *database.SourceRepo
	Content *database.ContentRepo
	Runs    *database.RunRepo
}

func NewRepos(t testing.TB) Repos {
	t.Helper()

	db := NewDB(t)
	return Repos{
		DB:      db,
		Sources: database.NewSourceRepository(db),
		Content: database.NewContentRepository(db),
		Runs:    database.NewRunRepository(db),
	}
}

// CreateSource stores a source and fails the test on error.
func CreateSource(t testing.TB, repo database.SourceRepository, source database.Source) *database.Source {
	t.Helper()

	created, err := repo.CreateSource(context.Background(), source)
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	return created
}
