package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// MustGetTempStore returns a Store backed by a file in a new temporary
// directory, and a cleanup function that should be called when the Store is
// no longer used.
func MustGetTempStore() (*Store, func()) {
	dir, err := os.MkdirTemp("", "strand.test")
	if err != nil {
		panic(fmt.Sprintf("Failed to create temp dir: %v", err))
	}
	st, err := Open(filepath.Join(dir, "values.db"), 0)
	if err != nil {
		panic(fmt.Sprintf("Failed to create Store instance: %v", err))
	}
	return st, func() {
		st.Close()
		err = os.RemoveAll(dir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to remove temp dir:", err)
		}
	}
}
