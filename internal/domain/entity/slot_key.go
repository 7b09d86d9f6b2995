package entity

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidSlotDate = errors.New("slot date must be a calendar date in YYYY-MM-DD format")
	ErrInvalidSlotTime = errors.New("slot time must look like 10:00 AM or 14:30")
)

// SlotDateLayout is the canonical date form of a slot.
const SlotDateLayout = "2006-01-02"

var (
	slotDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slotTimePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp][Mm])?$`)
)

// SlotKey identifies one bookable appointment: a facility-local calendar date
// plus a time of day at minute precision. The zero value is not a valid slot.
//
// SlotKey is comparable; two keys are equal iff their canonical forms are equal.
type SlotKey struct {
	year   int
	month  time.Month
	day    int
	minute int
}

// ParseSlotKey canonicalizes raw date and time strings. When both parts are
// malformed the returned error matches both ErrInvalidSlotDate and
// ErrInvalidSlotTime.
func ParseSlotKey(rawDate, rawTime string) (SlotKey, error) {
	date, dateErr := parseSlotDate(rawDate)
	minute, timeErr := parseSlotTime(rawTime)
	if err := errors.Join(dateErr, timeErr); err != nil {
		return SlotKey{}, err
	}
	return SlotKey{year: date.Year(), month: date.Month(), day: date.Day(), minute: minute}, nil
}

// NewSlotKey builds a key from a date (only its calendar fields are used) and
// a minute-of-day.
func NewSlotKey(date time.Time, minuteOfDay int) (SlotKey, error) {
	if minuteOfDay < 0 || minuteOfDay >= 24*60 {
		return SlotKey{}, ErrInvalidSlotTime
	}
	return SlotKey{year: date.Year(), month: date.Month(), day: date.Day(), minute: minuteOfDay}, nil
}

// CanonicalizeSlot returns the canonical date and display-time strings for
// raw input. Feeding its output back in yields the same output.
func CanonicalizeSlot(rawDate, rawTime string) (string, string, error) {
	key, err := ParseSlotKey(rawDate, rawTime)
	if err != nil {
		return "", "", err
	}
	return key.Date(), key.Time(), nil
}

// ParseSlotDate validates a strict YYYY-MM-DD calendar date.
func ParseSlotDate(raw string) (time.Time, error) {
	return parseSlotDate(raw)
}

func parseSlotDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if !slotDatePattern.MatchString(raw) {
		return time.Time{}, ErrInvalidSlotDate
	}
	// time.Parse rejects impossible days such as 2025-02-30.
	date, err := time.Parse(SlotDateLayout, raw)
	if err != nil {
		return time.Time{}, ErrInvalidSlotDate
	}
	return date, nil
}

func parseSlotTime(raw string) (int, error) {
	m := slotTimePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, ErrInvalidSlotTime
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if minute > 59 {
		return 0, ErrInvalidSlotTime
	}

	switch strings.ToUpper(m[3]) {
	case "":
		if hour > 23 {
			return 0, ErrInvalidSlotTime
		}
	case "AM", "PM":
		if hour < 1 || hour > 12 {
			return 0, ErrInvalidSlotTime
		}
		hour %= 12
		if strings.EqualFold(m[3], "PM") {
			hour += 12
		}
	}

	return hour*60 + minute, nil
}

func (k SlotKey) IsZero() bool {
	return k == SlotKey{}
}

// Date returns the canonical YYYY-MM-DD form.
func (k SlotKey) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.year, int(k.month), k.day)
}

// Time returns the canonical display form, e.g. "09:30 AM".
func (k SlotKey) Time() string {
	hour := k.minute / 60
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", hour12, k.minute%60, meridiem)
}

// Clock24 returns the 24-hour "15:04" form used as the storage column.
func (k SlotKey) Clock24() string {
	return fmt.Sprintf("%02d:%02d", k.minute/60, k.minute%60)
}

func (k SlotKey) MinuteOfDay() int {
	return k.minute
}

func (k SlotKey) String() string {
	return k.Date() + " " + k.Time()
}

// StartIn resolves the slot to an instant in the given facility location.
func (k SlotKey) StartIn(loc *time.Location) time.Time {
	return time.Date(k.year, k.month, k.day, k.minute/60, k.minute%60, 0, 0, loc)
}

// Day returns the slot's calendar date at midnight UTC.
func (k SlotKey) Day() time.Time {
	return time.Date(k.year, k.month, k.day, 0, 0, 0, 0, time.UTC)
}
