package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/chime/internal/store"
)

func ToCSV(items []store.MissedItem, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Type", "Label", "Due", "Observed", "Late", "Details"}); err != nil {
		return err
	}

	for _, item := range items {
		row := []string{
			item.ID,
			item.Type,
			item.Label,
			time.Unix(item.DueTime, 0).Local().Format(time.RFC3339),
			time.Unix(item.MissedAt, 0).Local().Format(time.RFC3339),
			formatLateness(item.MissedAt - item.DueTime),
			item.Details,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatLateness(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
