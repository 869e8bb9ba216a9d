// Package export writes the rolling history buffer to a CSV file on
// request. Files are write-only: nothing is read back at startup.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/luki/iothub/internal/telemetry"
)

const fileLayout = "20060102-150405"

// FileName returns the export file name for a run at time now.
func FileName(runID string, now time.Time) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("iothub-%s-%s.csv", short, now.Format(fileLayout))
}

// Write stores the snapshot's history in dir. The format is
//
//	time,<device name>,<device name>,...
//
// with one row per tick and an empty cell where a device was offline.
func Write(dir string, snap telemetry.Snapshot, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create export dir: %w", err)
	}

	path := filepath.Join(dir, FileName(snap.RunID, now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("cannot create export file: %w", err)
	}
	defer f.Close()

	names := snap.Names()
	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"time"}, names...)); err != nil {
		return "", err
	}

	for _, p := range snap.History {
		row := make([]string, 0, len(names)+1)
		row = append(row, p.Clock())
		for _, name := range names {
			if v, ok := p.Get(name); ok {
				row = append(row, fmt.Sprintf("%.1f", v))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}
