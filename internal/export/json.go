package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/chime/internal/store"
)

type jsonExport struct {
	ExportedAt string     `json:"exported_at"`
	Count      int        `json:"count"`
	Items      []jsonItem `json:"items"`
}

type jsonItem struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Label    string `json:"label,omitempty"`
	Due      string `json:"due"`
	Observed string `json:"observed"`
	LateSec  int64  `json:"late_seconds"`
	Late     string `json:"late"`
	Details  string `json:"details,omitempty"`
}

func ToJSON(items []store.MissedItem, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(items),
	}

	for _, item := range items {
		late := item.MissedAt - item.DueTime
		if late < 0 {
			late = 0
		}
		export.Items = append(export.Items, jsonItem{
			ID:       item.ID,
			Type:     item.Type,
			Label:    item.Label,
			Due:      time.Unix(item.DueTime, 0).Local().Format(time.RFC3339),
			Observed: time.Unix(item.MissedAt, 0).Local().Format(time.RFC3339),
			LateSec:  late,
			Late:     formatLateness(late),
			Details:  item.Details,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
