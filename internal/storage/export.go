package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/san-kum/haptix/internal/device"
)

// ExportData is a whole run in one JSON document.
type ExportData struct {
	Run     RunMetadata     `json:"run"`
	Records []device.Record `json:"records"`
}

func WriteJSON(w io.Writer, meta RunMetadata, records []device.Record) error {
	if records == nil {
		records = []device.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: meta, Records: records})
}

// Export writes run id to w as "csv" or "json".
func (s *Store) Export(w io.Writer, id, format string) error {
	switch format {
	case "", "csv":
		records, err := s.LoadRecords(id)
		if err != nil {
			return err
		}
		return WriteCSV(w, records)
	case "json":
		meta, err := s.Load(id)
		if err != nil {
			return err
		}
		records, err := s.LoadRecords(id)
		if err != nil {
			return err
		}
		return WriteJSON(w, *meta, records)
	default:
		return fmt.Errorf("storage: unknown export format %q", format)
	}
}
