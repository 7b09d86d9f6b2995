package service

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"hospital-booking/config"
	"hospital-booking/internal/domain/entity"
	"hospital-booking/pkg/clock"
	"hospital-booking/pkg/validator"
)

// ValidationError lists every malformed field of a request, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// BookingInput is an unvalidated booking request
type BookingInput struct {
	Date    string
	Time    string
	Patient entity.PatientPayload
}

type patientRules struct {
	Name   string `json:"name" validate:"required,min=2,max=100"`
	Phone  string `json:"phone" validate:"required,phone"`
	Email  string `json:"email" validate:"omitempty,email,max=254"`
	Reason string `json:"reason" validate:"max=500"`
}

var phoneNoise = regexp.MustCompile(`[\s\-().]`)

// ValidationGate normalizes raw booking input and rejects it before any
// transaction opens. Lead time is not a field rule: callers check IsExpired
// so that a late slot fails the same way here and at claim time.
type ValidationGate struct {
	cfg       config.BookingConfig
	clock     clock.Clock
	validator *validator.CustomValidator
	excluded  map[int]struct{}
}

func NewValidationGate(cfg config.BookingConfig, clk clock.Clock, v *validator.CustomValidator) *ValidationGate {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	excluded := make(map[int]struct{}, len(cfg.ExcludedTimes))
	for _, m := range cfg.ExcludedTimes {
		excluded[m] = struct{}{}
	}
	return &ValidationGate{
		cfg:       cfg,
		clock:     clk,
		validator: v,
		excluded:  excluded,
	}
}

// ValidateSlot canonicalizes and checks a slot against the booking policy.
func (g *ValidationGate) ValidateSlot(rawDate, rawTime string) (entity.SlotKey, error) {
	fields := make(map[string]string)
	slot := g.checkSlot(rawDate, rawTime, fields)
	if len(fields) > 0 {
		return entity.SlotKey{}, &ValidationError{Fields: fields}
	}
	return slot, nil
}

// ValidateBooking checks the slot and the patient payload together and
// reports every bad field at once.
func (g *ValidationGate) ValidateBooking(in BookingInput) (entity.SlotKey, entity.PatientPayload, error) {
	fields := make(map[string]string)
	slot := g.checkSlot(in.Date, in.Time, fields)

	patient := NormalizePatient(in.Patient)
	rules := patientRules{
		Name:   patient.Name,
		Phone:  patient.Phone,
		Email:  patient.Email,
		Reason: patient.Reason,
	}
	if err := g.validator.Validate(&rules); err != nil {
		for field, msg := range g.validator.FormatValidationErrors(err) {
			fields[field] = msg
		}
	}

	if len(fields) > 0 {
		return entity.SlotKey{}, entity.PatientPayload{}, &ValidationError{Fields: fields}
	}
	return slot, patient, nil
}

func (g *ValidationGate) checkSlot(rawDate, rawTime string, fields map[string]string) entity.SlotKey {
	slot, err := entity.ParseSlotKey(rawDate, rawTime)
	if errors.Is(err, entity.ErrInvalidSlotDate) {
		fields["date"] = entity.ErrInvalidSlotDate.Error()
	}
	if errors.Is(err, entity.ErrInvalidSlotTime) {
		fields["time"] = entity.ErrInvalidSlotTime.Error()
	}
	if err != nil {
		return entity.SlotKey{}
	}

	if g.cfg.MaxAdvanceDays > 0 {
		today := civilDate(g.clock.Now().In(g.cfg.Location))
		if slot.Day().After(today.AddDate(0, 0, g.cfg.MaxAdvanceDays)) {
			fields["date"] = fmt.Sprintf("date must be within %d days from today", g.cfg.MaxAdvanceDays)
		}
	}

	if msg := g.timeRuleViolation(slot.MinuteOfDay()); msg != "" {
		fields["time"] = msg
	}
	return slot
}

func (g *ValidationGate) timeRuleViolation(minute int) string {
	interval := g.intervalMinutes()
	if g.cfg.SlotInterval > 0 && minute%interval != 0 {
		return fmt.Sprintf("time must fall on a %d-minute boundary", interval)
	}
	if len(g.cfg.Windows) > 0 && !g.inWindow(minute) {
		return "time is outside service hours"
	}
	if _, ok := g.excluded[minute]; ok {
		return "time is not open for booking"
	}
	return ""
}

func (g *ValidationGate) inWindow(minute int) bool {
	length := 1
	if g.cfg.SlotInterval > 0 {
		length = g.intervalMinutes()
	}
	for _, w := range g.cfg.Windows {
		if minute >= w.Start && minute+length <= w.End {
			return true
		}
	}
	return false
}

func (g *ValidationGate) intervalMinutes() int {
	return int(g.cfg.SlotInterval / time.Minute)
}

// SlotStart resolves a slot to an instant in the facility time zone.
func (g *ValidationGate) SlotStart(slot entity.SlotKey) time.Time {
	return slot.StartIn(g.cfg.Location)
}

// IsExpired reports whether slot starts inside the lead-time buffer of now.
func (g *ValidationGate) IsExpired(slot entity.SlotKey, now time.Time) bool {
	return g.SlotStart(slot).Before(now.Add(g.cfg.LeadTime))
}

// DaySlots enumerates the bookable grid for a day: each service window cut
// into slot intervals, minus excluded times. Without windows the whole day is
// used; without an interval the grid falls back to 30 minutes.
func (g *ValidationGate) DaySlots(date time.Time) []entity.SlotKey {
	step := g.intervalMinutes()
	if step <= 0 {
		step = 30
	}
	windows := g.cfg.Windows
	if len(windows) == 0 {
		windows = []config.ServiceWindow{{Start: 0, End: 24 * 60}}
	}

	seen := make(map[int]struct{})
	var minutes []int
	for _, w := range windows {
		for m := w.Start; m+step <= w.End; m += step {
			if _, ok := g.excluded[m]; ok {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			minutes = append(minutes, m)
		}
	}
	sort.Ints(minutes)

	slots := make([]entity.SlotKey, 0, len(minutes))
	for _, m := range minutes {
		if m%step != 0 && g.cfg.SlotInterval > 0 {
			continue
		}
		slot, err := entity.NewSlotKey(date, m)
		if err != nil {
			continue
		}
		slots = append(slots, slot)
	}
	return slots
}

// NormalizePatient trims every field, collapses whitespace in the name,
// strips formatting from the phone number and lower-cases the email.
func NormalizePatient(p entity.PatientPayload) entity.PatientPayload {
	return entity.PatientPayload{
		Name:   strings.Join(strings.Fields(p.Name), " "),
		Phone:  phoneNoise.ReplaceAllString(strings.TrimSpace(p.Phone), ""),
		Email:  strings.ToLower(strings.TrimSpace(p.Email)),
		Reason: strings.TrimSpace(p.Reason),
	}
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
