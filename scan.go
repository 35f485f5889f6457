package dirwatch

import "os"

// scanDirectory enumerates the directory once and synthesizes the initial
// batch: one Modified event per regular file present. Subdirectories are
// excluded. Enumeration order is whatever the OS returns; callers must not
// rely on it.
//
// A listing failure means the directory is already gone or unreadable, which
// the dispatch loop converts into its source-removed path.
func scanDirectory(dir string) ([]Event, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !entry.Type().IsRegular() {
			// An entry that vanished or a non-file (socket, fifo,
			// dangling symlink) is skipped, not an error.
			continue
		}
		events = append(events, Event{Name: entry.Name(), Kind: Modified})
	}
	return events, nil
}
