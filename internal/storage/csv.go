package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/haptix/internal/device"
)

// Header is the records.csv header. The first five columns are the
// rendering accuracy log; the rest are diagnostics.
var Header = []string{
	"Time (s)", "Velocity", "Desired force", "Rendered Force", "Percentage of Error",
	"Session", "Mode", "Position", "Target position", "Command",
	"Self velocity", "External velocity", "Scale",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func WriteCSV(w io.Writer, records []device.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			formatFloat(r.Time),
			formatFloat(r.Velocity),
			formatFloat(r.TargetForce),
			formatFloat(r.RenderedForce),
			formatFloat(r.ErrorPercent),
			strconv.Itoa(r.Session),
			r.Mode,
			formatFloat(r.Position),
			formatFloat(r.TargetPosition),
			formatFloat(r.Command),
			formatFloat(r.SelfVelocity),
			formatFloat(r.ExternalVelocity),
			formatFloat(r.Scale),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses what WriteCSV produced. Files holding only the five
// accuracy columns are accepted too.
func ReadCSV(r io.Reader) ([]device.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return []device.Record{}, nil
	}

	records := make([]device.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 5 {
			return nil, fmt.Errorf("row %d: %d columns, want at least 5", i+1, len(row))
		}
		nums := make([]float64, len(row))
		for j, field := range row {
			if j == 6 {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
			nums[j] = v
		}

		rec := device.Record{
			Time:          nums[0],
			Velocity:      nums[1],
			TargetForce:   nums[2],
			RenderedForce: nums[3],
			ErrorPercent:  nums[4],
		}
		if len(row) >= len(Header) {
			rec.Session = int(nums[5])
			rec.Mode = row[6]
			rec.Position = nums[7]
			rec.TargetPosition = nums[8]
			rec.Command = nums[9]
			rec.SelfVelocity = nums[10]
			rec.ExternalVelocity = nums[11]
			rec.Scale = nums[12]
		}
		records = append(records, rec)
	}
	return records, nil
}
