// Package export renders a user's data as CSV tables and an XLSX
// workbook, bundled in one zip archive.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/set-night/carlog/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	timestampLayout = time.RFC3339
	workbookName    = "export.xlsx"
)

// utf8BOM makes spreadsheet apps detect the encoding of the CSV files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// table is one entity rendered as rows. Cells are string, int64,
// float64, bool or nil.
type table struct {
	file   string
	sheet  string
	header []string
	rows   [][]any
}

// Archive builds the zip with one CSV per entity plus the workbook.
func Archive(s *domain.Snapshot) ([]byte, error) {
	tables := buildTables(s)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	now := time.Now()

	for _, t := range tables {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: t.file, Method: zip.Deflate, Modified: now})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", t.file, err)
		}
		if err := writeCSV(w, t); err != nil {
			return nil, fmt.Errorf("write %s: %w", t.file, err)
		}
	}

	book, err := workbook(tables)
	if err != nil {
		return nil, err
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: workbookName, Method: zip.Deflate, Modified: now})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", workbookName, err)
	}
	if _, err := w.Write(book); err != nil {
		return nil, fmt.Errorf("write %s: %w", workbookName, err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// buildTables flattens the snapshot into vehicles, maintenance and
// reminders tables, in that order.
func buildTables(s *domain.Snapshot) []table {
	vehicles := table{
		file:   "vehicles.csv",
		sheet:  "Vehicles",
		header: []string{"id", "name", "alias", "plate", "brand", "model", "year", "km_current", "notes", "created_at"},
	}
	for _, v := range s.Vehicles {
		var year any
		if v.Year != nil {
			year = int64(*v.Year)
		}
		vehicles.rows = append(vehicles.rows, []any{
			v.ID, v.DisplayName(), str(v.Alias), str(v.Plate), str(v.Brand), str(v.Model),
			year, v.KmCurrent, str(v.Notes), stamp(v.CreatedAt),
		})
	}

	maintenance := table{
		file:   "maintenance.csv",
		sheet:  "Maintenance",
		header: []string{"id", "vehicle_id", "vehicle", "date", "km", "type", "cost", "notes", "created_at"},
	}
	for _, m := range s.Maintenance {
		var cost any
		if m.Cost != nil {
			cost = m.Cost.InexactFloat64()
		}
		maintenance.rows = append(maintenance.rows, []any{
			m.ID, m.VehicleID, m.VehicleName, m.Date.String(), num(m.Km), m.Type,
			cost, str(m.Notes), stamp(m.CreatedAt),
		})
	}

	reminders := table{
		file:   "reminders.csv",
		sheet:  "Reminders",
		header: []string{"id", "vehicle_id", "vehicle", "kind", "due_at", "km_threshold", "description", "active", "created_at"},
	}
	for _, r := range s.Reminders {
		var due any
		if r.DueAt != nil {
			due = stamp(*r.DueAt)
		}
		reminders.rows = append(reminders.rows, []any{
			r.ID, r.VehicleID, r.VehicleName, string(r.Kind), due, num(r.KmThreshold),
			r.Description, r.Active, stamp(r.CreatedAt),
		})
	}

	return []table{vehicles, maintenance, reminders}
}

func writeCSV(w io.Writer, t table) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	record := make([]string, len(t.header))
	for _, row := range t.rows {
		for i, cell := range row {
			record[i] = cellText(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// workbook renders the tables as one sheet each.
func workbook(tables []table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.sheet); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", t.sheet, err)
		}

		header := make([]any, len(t.header))
		for j, h := range t.header {
			header[j] = h
		}
		if err := f.SetSheetRow(t.sheet, "A1", &header); err != nil {
			return nil, fmt.Errorf("sheet %s header: %w", t.sheet, err)
		}
		for j, row := range t.rows {
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(t.sheet, cell, &row); err != nil {
				return nil, fmt.Errorf("sheet %s row %d: %w", t.sheet, j+2, err)
			}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func str(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func num(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func stamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timestampLayout)
}
