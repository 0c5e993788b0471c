// Package calendar renders weekly medication reminders as iCalendar documents.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	prodID  = "-//AI Health Assist//Reminders//EN"
	uidHost = "healthassist"

	// ReminderDescription is attached to every medication reminder.
	ReminderDescription = "Medication reminder generated by AI Health Assist (educational use)."

	stampLayout   = "20060102T150405Z"
	maxLineOctets = 75
)

var (
	ErrInvalidTime       = errors.New("reminder time must be HH:MM")
	ErrInvalidDay        = errors.New("unknown day of week")
	ErrMissingMedication = errors.New("medication name is required")
)

// DefaultDays is used when a reminder names no days.
var DefaultDays = []string{"Mon", "Tue", "Wed", "Thu", "Fri"}

var dayCodes = map[string]string{
	"mon": "MO", "monday": "MO", "mo": "MO",
	"tue": "TU", "tuesday": "TU", "tu": "TU",
	"wed": "WE", "wednesday": "WE", "we": "WE",
	"thu": "TH", "thursday": "TH", "th": "TH",
	"fri": "FR", "friday": "FR", "fr": "FR",
	"sat": "SA", "saturday": "SA", "sa": "SA",
	"sun": "SU", "sunday": "SU", "su": "SU",
}

// ReminderSpec describes a weekly reminder at a local wall-clock time.
type ReminderSpec struct {
	Title       string
	Description string
	// Time is "HH:MM" in 24-hour form.
	Time string
	// Days are day abbreviations such as "Mon". Empty means weekdays.
	Days []string
}

// NewMedicationReminder builds the reminder for taking med, with dose in the
// title when given.
func NewMedicationReminder(med, dose, at string, days []string) (ReminderSpec, error) {
	med = strings.TrimSpace(med)
	if med == "" {
		return ReminderSpec{}, ErrMissingMedication
	}
	title := "Take " + med
	if dose = strings.TrimSpace(dose); dose != "" {
		title += " (" + dose + ")"
	}
	return ReminderSpec{
		Title:       title,
		Description: ReminderDescription,
		Time:        at,
		Days:        days,
	}, nil
}

// FileName is the download name for a reminder about med.
func FileName(med string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(med))
	return "reminder_" + name + ".ics"
}

// Emitter renders reminders with a clock and UID generator.
type Emitter struct {
	now    func() time.Time
	newUID func() string
}

// NewEmitter returns an emitter using the system clock and random UUIDs.
func NewEmitter() *Emitter {
	return &Emitter{now: time.Now, newUID: uuid.NewString}
}

// Emit renders spec starting now.
func (e *Emitter) Emit(spec ReminderSpec) ([]byte, error) {
	doc, err := render(spec, e.now(), e.newUID())
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

// Render renders spec as a VCALENDAR with a single weekly VEVENT starting at now.
func Render(spec ReminderSpec, now time.Time) (string, error) {
	return render(spec, now, uuid.NewString())
}

func render(spec ReminderSpec, now time.Time, uid string) (string, error) {
	hour, minute, err := parseClock(spec.Time)
	if err != nil {
		return "", err
	}
	byDay, err := parseDays(spec.Days)
	if err != nil {
		return "", err
	}
	stamp := now.UTC().Format(stampLayout)

	var b strings.Builder
	for _, line := range []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"BEGIN:VEVENT",
		"UID:" + uid + "@" + uidHost,
		"DTSTAMP:" + stamp,
		"DTSTART:" + stamp,
		fmt.Sprintf("RRULE:FREQ=WEEKLY;BYDAY=%s;BYHOUR=%d;BYMINUTE=%d;BYSECOND=0", byDay, hour, minute),
		"SUMMARY:" + escapeText(spec.Title),
		"DESCRIPTION:" + escapeText(spec.Description),
		"END:VEVENT",
		"END:VCALENDAR",
	} {
		writeFolded(&b, line)
	}
	return b.String(), nil
}

func parseClock(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || len(hh) > 2 || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return hour, minute, nil
}

func parseDays(days []string) (string, error) {
	if len(days) == 0 {
		days = DefaultDays
	}
	codes := make([]string, 0, len(days))
	seen := make(map[string]struct{}, len(days))
	for _, d := range days {
		code, ok := dayCodes[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrInvalidDay, d)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return strings.Join(codes, ","), nil
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

func escapeText(s string) string {
	return textEscaper.Replace(strings.ToValidUTF8(s, "\uFFFD"))
}

// writeFolded writes line with CRLF, folding content lines longer than 75
// octets without splitting a UTF-8 sequence.
func writeFolded(b *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		// continuation lines carry a leading space
		limit = maxLineOctets - 1
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}
