package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nhle/weekplanner/internal/persist"
)

// NewTestLocalStore creates a temporary on-disk local store with all
// migrations applied. It automatically closes the store when the test
// completes.
func NewTestLocalStore(t *testing.T) *persist.Local {
	t.Helper()

	s, err := persist.NewLocal(filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
