package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/parse"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func ptr[T any](v T) *T { return &v }

func sampleSnapshot() *domain.Snapshot {
	created := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	due := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	cost := decimal.RequireFromString("89.90")
	return &domain.Snapshot{
		Vehicles: []domain.Vehicle{{
			ID: 1, UserID: 7, Alias: ptr("Panda"), Plate: ptr("AB123CD"), Year: ptr(2015),
			KmCurrent: 123456, CreatedAt: created,
		}},
		Maintenance: []domain.MaintenanceRow{
			{
				MaintenanceRecord: domain.MaintenanceRecord{
					ID: 10, VehicleID: 1, Date: parse.Date{Year: 2025, Month: time.August, Day: 2},
					Km: ptr(int64(120000)), Type: "Oil change", Cost: &cost, CreatedAt: created,
				},
				VehicleName: "Panda",
			},
			{
				MaintenanceRecord: domain.MaintenanceRecord{
					ID: 11, VehicleID: 1, Date: parse.Date{Year: 2025, Month: time.August, Day: 3},
					Type: "Tyres", Notes: ptr("winter, set of 4"), CreatedAt: created,
				},
				VehicleName: "Panda",
			},
		},
		Reminders: []domain.ReminderRow{{
			Reminder: domain.Reminder{
				ID: 20, VehicleID: 1, Kind: domain.ReminderTime, DueAt: &due,
				Description: "Inspection", Active: true, CreatedAt: created,
			},
			VehicleName: "Panda",
		}},
	}
}

func openArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	files := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = b
	}
	return files
}

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(b, utf8BOM), "missing BOM")
	records, err := csv.NewReader(bytes.NewReader(b[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestArchive(t *testing.T) {
	data, err := Archive(sampleSnapshot())
	require.NoError(t, err)

	files := openArchive(t, data)
	require.Len(t, files, 4)

	vehicles := readCSV(t, files["vehicles.csv"])
	require.Len(t, vehicles, 2)
	assert.Equal(t, "id", vehicles[0][0])
	assert.Equal(t, []string{"1", "Panda", "Panda", "AB123CD", "", "", "2015", "123456", "", "2025-08-01T10:00:00Z"}, vehicles[1])

	maintenance := readCSV(t, files["maintenance.csv"])
	require.Len(t, maintenance, 3)
	assert.Equal(t, "Panda", maintenance[1][2])
	assert.Equal(t, "2025-08-02", maintenance[1][3])
	assert.Equal(t, "89.90", maintenance[1][6])
	assert.Equal(t, "", maintenance[2][6])
	assert.Equal(t, "winter, set of 4", maintenance[2][7])

	reminders := readCSV(t, files["reminders.csv"])
	require.Len(t, reminders, 2)
	assert.Equal(t, []string{"20", "1", "Panda", "time", "2025-09-01T09:00:00Z", "", "Inspection", "true", "2025-08-01T10:00:00Z"}, reminders[1])
}

func TestArchiveWorkbook(t *testing.T) {
	data, err := Archive(sampleSnapshot())
	require.NoError(t, err)

	files := openArchive(t, data)
	f, err := excelize.OpenReader(bytes.NewReader(files["export.xlsx"]))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Vehicles", "Maintenance", "Reminders"}, f.GetSheetList())

	counts := map[string]int{"Vehicles": 2, "Maintenance": 3, "Reminders": 2}
	for sheet, want := range counts {
		rows, err := f.GetRows(sheet)
		require.NoError(t, err)
		assert.Len(t, rows, want, sheet)
	}

	name, err := f.GetCellValue("Maintenance", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Panda", name)
}

func TestArchiveEmptySnapshot(t *testing.T) {
	data, err := Archive(&domain.Snapshot{})
	require.NoError(t, err)

	files := openArchive(t, data)
	for _, name := range []string{"vehicles.csv", "maintenance.csv", "reminders.csv"} {
		assert.Len(t, readCSV(t, files[name]), 1, name)
	}
}
