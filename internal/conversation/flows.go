package conversation

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/parse"
)

const (
	slotVehicle     = "vehicle"
	slotAlias       = "alias"
	slotPlate       = "plate"
	slotBrand       = "brand"
	slotModel       = "model"
	slotYear        = "year"
	slotNotes       = "notes"
	slotKm          = "km"
	slotType        = "type"
	slotCustomType  = "custom_type"
	slotDate        = "date"
	slotCost        = "cost"
	slotDueAt       = "due_at"
	slotThreshold   = "km_threshold"
	slotDescription = "description"
)

const (
	maxTextLen        = 64
	maxNotesLen       = 500
	defaultReminderIn = 7 * 24 * time.Hour
	minVehicleYear    = 1900
)

func init() {
	register(addVehicleFlow())
	register(updateOdometerFlow())
	register(addMaintenanceFlow())
	register(setTimeReminderFlow())
	register(setKmReminderFlow())
}

func addVehicleFlow() *flowDef {
	return &flowDef{
		name: FlowAddVehicle,
		slots: []slot{
			textSlot(slotAlias, "Give the vehicle a name (e.g. <i>Red Panda</i>).", false, maxTextLen),
			{
				name:     slotPlate,
				optional: true,
				prompt:   staticPrompt("Plate number? Send <code>-</code> to skip."),
				parseText: func(_ *env, text string) (string, error) {
					plate := domain.CanonicalPlate(text)
					if plate == "" || len(plate) > 12 {
						return "", &domain.ValidationError{Field: slotPlate, Expected: "letters and digits, e.g. AB123CD"}
					}
					return plate, nil
				},
			},
			textSlot(slotBrand, "Brand? Send <code>-</code> to skip.", true, maxTextLen),
			textSlot(slotModel, "Model? Send <code>-</code> to skip.", true, maxTextLen),
			{
				name:     slotYear,
				optional: true,
				prompt:   staticPrompt("Year of registration? Send <code>-</code> to skip."),
				parseText: func(e *env, text string) (string, error) {
					year, err := strconv.Atoi(strings.TrimSpace(text))
					if err != nil || year < minVehicleYear || year > e.now.Year()+1 {
						return "", &domain.ValidationError{Field: slotYear, Expected: fmt.Sprintf("a year between %d and %d", minVehicleYear, e.now.Year()+1)}
					}
					return strconv.Itoa(year), nil
				},
			},
			textSlot(slotNotes, "Any notes? Send <code>-</code> to skip.", true, maxNotesLen),
		},
		commit: func(e *env) (string, error) {
			v := &domain.Vehicle{
				UserID: e.userID,
				Alias:  optString(e.data[slotAlias]),
				Plate:  optString(e.data[slotPlate]),
				Brand:  optString(e.data[slotBrand]),
				Model:  optString(e.data[slotModel]),
				Notes:  optString(e.data[slotNotes]),
			}
			if y := e.data[slotYear]; y != "" {
				year, _ := strconv.Atoi(y)
				v.Year = &year
			}
			if err := e.backend.CreateVehicle(e.ctx, v); err != nil {
				return "", err
			}
			return fmt.Sprintf("✅ Vehicle <b>%s</b> saved (#%d).", html.EscapeString(v.DisplayName()), v.ID), nil
		},
	}
}

func updateOdometerFlow() *flowDef {
	return &flowDef{
		name:         FlowUpdateOdometer,
		needsVehicle: true,
		slots: []slot{
			vehicleSlot(domain.ActionOdometerVehicle, "Which vehicle?"),
			{
				name: slotKm,
				prompt: func(e *env) (Reply, error) {
					v, err := e.backend.GetVehicle(e.ctx, e.userID, e.vehicleID())
					if err != nil {
						return Reply{}, err
					}
					return Reply{
						Text:    fmt.Sprintf("Current odometer of <b>%s</b>: %d km.\nSend the new reading.", html.EscapeString(v.DisplayName()), v.KmCurrent),
						Choices: []Choice{cancelChoice()},
					}, nil
				},
				parseText: quantity(slotKm),
			},
		},
		commit: func(e *env) (string, error) {
			km, _ := strconv.ParseInt(e.data[slotKm], 10, 64)
			if err := e.backend.UpdateOdometer(e.ctx, e.userID, e.vehicleID(), km); err != nil {
				return "", err
			}
			return fmt.Sprintf("✅ Odometer updated to %d km.", km), nil
		},
	}
}

func addMaintenanceFlow() *flowDef {
	return &flowDef{
		name:         FlowAddMaintenance,
		needsVehicle: true,
		slots: []slot{
			vehicleSlot(domain.ActionMaintenanceVehicle, "Which vehicle was serviced?"),
			{
				name:      slotType,
				selection: domain.ActionMaintenanceType,
				textOK:    true,
				prompt: func(*env) (Reply, error) {
					choices := make([]Choice, 0, len(domain.MaintenanceTypes)+1)
					for i, t := range domain.MaintenanceTypes {
						choices = append(choices, Choice{
							Label: t,
							Token: domain.Action{Kind: domain.ActionMaintenanceType, ID: int64(i)}.Token(),
						})
					}
					choices = append(choices, cancelChoice())
					return Reply{Text: "What was done? Pick one or type it.", Choices: choices}, nil
				},
				parseAction: func(_ *env, a domain.Action) (string, error) {
					if a.ID < 0 || a.ID >= int64(len(domain.MaintenanceTypes)) {
						return "", &domain.ValidationError{Field: slotType, Expected: "one of the listed types"}
					}
					return domain.MaintenanceTypes[a.ID], nil
				},
				parseText: func(_ *env, text string) (string, error) {
					text = strings.TrimSpace(text)
					if text == "" || len([]rune(text)) > maxTextLen {
						return "", &domain.ValidationError{Field: slotType, Expected: "a short description of the work"}
					}
					for _, t := range domain.MaintenanceTypes {
						if strings.EqualFold(t, text) {
							return t, nil
						}
					}
					return text, nil
				},
			},
			func() slot {
				s := textSlot(slotCustomType, "Describe the work done.", false, maxTextLen)
				s.skipWhen = func(data map[string]string) bool { return data[slotType] != domain.MaintenanceOther }
				return s
			}(),
			{
				name:   slotDate,
				prompt: staticPrompt("Date? e.g. <code>22/08/2025</code>, <code>yesterday</code>. Send <code>-</code> for today."),
				onSkip: func(e *env) string { return parse.DateOf(e.now).String() },
				parseText: func(e *env, text string) (string, error) {
					d, err := parse.ParseDate(text, e.now)
					if err != nil {
						return "", &domain.ValidationError{Field: slotDate, Expected: parse.ExpectedDate}
					}
					return d.String(), nil
				},
			},
			{
				name:      slotKm,
				optional:  true,
				prompt:    staticPrompt("Odometer at the time? Send <code>-</code> to skip."),
				parseText: quantity(slotKm),
			},
			textSlot(slotNotes, "Notes? Send <code>-</code> to skip.", true, maxNotesLen),
			{
				name:     slotCost,
				optional: true,
				prompt:   staticPrompt("Cost? e.g. <code>120,50</code>. Send <code>-</code> to skip."),
				parseText: func(_ *env, text string) (string, error) {
					c, err := parse.ParseCurrency(text)
					if err != nil {
						return "", &domain.ValidationError{Field: slotCost, Expected: parse.ExpectedCurrency}
					}
					if c.GreaterThan(domain.MaxCost) {
						return "", &domain.ValidationError{Field: slotCost, Expected: domain.ExpectedCost}
					}
					return c.StringFixed(2), nil
				},
			},
		},
		commit: func(e *env) (string, error) {
			date, err := parse.ParseISODate(e.data[slotDate])
			if err != nil {
				return "", &domain.ValidationError{Field: slotDate, Expected: parse.ExpectedDate}
			}
			typ := e.data[slotType]
			if typ == domain.MaintenanceOther {
				typ = e.data[slotCustomType]
			}
			m := &domain.MaintenanceRecord{
				VehicleID: e.vehicleID(),
				Date:      date,
				Type:      typ,
				Notes:     optString(e.data[slotNotes]),
			}
			if s := e.data[slotKm]; s != "" {
				km, _ := strconv.ParseInt(s, 10, 64)
				m.Km = &km
			}
			if s := e.data[slotCost]; s != "" {
				c, err := parse.ParseCurrency(s)
				if err == nil {
					m.Cost = &c
				}
			}
			if err := e.backend.AddMaintenance(e.ctx, e.userID, m); err != nil {
				return "", err
			}
			return fmt.Sprintf("✅ Maintenance <b>%s</b> on %s saved (#%d).", html.EscapeString(m.Type), m.Date, m.ID), nil
		},
	}
}

func setTimeReminderFlow() *flowDef {
	return &flowDef{
		name:         FlowSetTimeReminder,
		needsVehicle: true,
		slots: []slot{
			vehicleSlot(domain.ActionTimeReminderVehicle, "Reminder for which vehicle?"),
			{
				name: slotDueAt,
				prompt: func(e *env) (Reply, error) {
					def := defaultDueAt(e.now)
					return Reply{
						Text: fmt.Sprintf("When? e.g. <code>22/08/2025 10:30</code>, <code>tomorrow at 9</code>.\nSend <code>-</code> for %s.",
							def.Format("2006-01-02 15:04")),
						Choices: []Choice{cancelChoice()},
					}, nil
				},
				onSkip: func(e *env) string { return defaultDueAt(e.now).Format(time.RFC3339) },
				parseText: func(e *env, text string) (string, error) {
					t, err := parse.ParseDateTime(text, e.now)
					if err != nil {
						return "", &domain.ValidationError{Field: slotDueAt, Expected: parse.ExpectedDateTime}
					}
					return t.Format(time.RFC3339), nil
				},
			},
			textSlot(slotDescription, "Short description? e.g. <i>Inspection</i>, <i>Road tax</i>.", false, maxTextLen),
		},
		commit: func(e *env) (string, error) {
			due, err := time.Parse(time.RFC3339, e.data[slotDueAt])
			if err != nil {
				return "", &domain.ValidationError{Field: slotDueAt, Expected: parse.ExpectedDateTime}
			}
			due = due.In(e.now.Location())
			r := &domain.Reminder{
				VehicleID:   e.vehicleID(),
				Kind:        domain.ReminderTime,
				DueAt:       &due,
				Description: e.data[slotDescription],
				Active:      true,
			}
			if err := e.backend.CreateReminder(e.ctx, e.userID, r); err != nil {
				return "", err
			}
			return fmt.Sprintf("✅ Reminder set for %s (#%d).", due.Format("2006-01-02 15:04"), r.ID), nil
		},
	}
}

func setKmReminderFlow() *flowDef {
	return &flowDef{
		name:         FlowSetKmReminder,
		needsVehicle: true,
		slots: []slot{
			vehicleSlot(domain.ActionKmReminderVehicle, "Reminder for which vehicle?"),
			{
				name:      slotThreshold,
				prompt:    staticPrompt("At how many km should I remind you? e.g. <code>10000</code>"),
				parseText: quantity(slotThreshold),
			},
			textSlot(slotDescription, "Short description? e.g. <i>Oil change</i>.", false, maxTextLen),
		},
		commit: func(e *env) (string, error) {
			km, _ := strconv.ParseInt(e.data[slotThreshold], 10, 64)
			r := &domain.Reminder{
				VehicleID:   e.vehicleID(),
				Kind:        domain.ReminderKm,
				KmThreshold: &km,
				Description: e.data[slotDescription],
				Active:      true,
			}
			if err := e.backend.CreateReminder(e.ctx, e.userID, r); err != nil {
				return "", err
			}
			return fmt.Sprintf("✅ I'll remind you once the odometer reaches %d km (#%d).", km, r.ID), nil
		},
	}
}

func vehicleSlot(kind domain.ActionKind, question string) slot {
	return slot{
		name:      slotVehicle,
		selection: kind,
		prompt: func(e *env) (Reply, error) {
			vehicles, err := e.backend.ListVehicles(e.ctx, e.userID)
			if err != nil {
				return Reply{}, err
			}
			choices := make([]Choice, 0, len(vehicles)+1)
			for i := range vehicles {
				choices = append(choices, Choice{
					Label: vehicles[i].DisplayName(),
					Token: domain.Action{Kind: kind, ID: vehicles[i].ID}.Token(),
				})
			}
			choices = append(choices, cancelChoice())
			return Reply{Text: question, Choices: choices}, nil
		},
		parseAction: func(e *env, a domain.Action) (string, error) {
			v, err := e.backend.GetVehicle(e.ctx, e.userID, a.ID)
			if err != nil {
				return "", err
			}
			return strconv.FormatInt(v.ID, 10), nil
		},
	}
}

func textSlot(name, question string, optional bool, maxLen int) slot {
	return slot{
		name:     name,
		optional: optional,
		prompt:   staticPrompt(question),
		parseText: func(_ *env, text string) (string, error) {
			text = strings.TrimSpace(text)
			if text == "" || len([]rune(text)) > maxLen {
				return "", &domain.ValidationError{Field: name, Expected: fmt.Sprintf("text up to %d characters", maxLen)}
			}
			return text, nil
		},
	}
}

func quantity(field string) func(*env, string) (string, error) {
	return func(_ *env, text string) (string, error) {
		n, err := parse.ParseQuantity(text)
		if err != nil {
			return "", &domain.ValidationError{Field: field, Expected: parse.ExpectedQuantity}
		}
		return strconv.FormatInt(n, 10), nil
	}
}

func staticPrompt(text string) func(*env) (Reply, error) {
	return func(*env) (Reply, error) {
		return Reply{Text: text, Choices: []Choice{cancelChoice()}}, nil
	}
}

func defaultDueAt(now time.Time) time.Time {
	return now.Add(defaultReminderIn).Truncate(time.Minute)
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
