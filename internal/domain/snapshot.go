package domain

// Snapshot is everything a user owns, flattened for row-oriented export.
type Snapshot struct {
	Vehicles    []Vehicle
	Maintenance []MaintenanceRow
	Reminders   []ReminderRow
}

type MaintenanceRow struct {
	MaintenanceRecord
	VehicleName string
}

type ReminderRow struct {
	Reminder
	VehicleName string
}
