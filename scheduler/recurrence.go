package scheduler

import (
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pacerhq/pacer/errors"
)

// RecurrenceType identifies how a schedule repeats
type RecurrenceType string

const (
	RecurrenceOnce     RecurrenceType = "once"
	RecurrenceHourly   RecurrenceType = "hourly"
	RecurrenceDaily    RecurrenceType = "daily"
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceMonthly  RecurrenceType = "monthly"
	RecurrenceInterval RecurrenceType = "interval"
	RecurrenceCron     RecurrenceType = "cron"
)

// RecurrenceConfig carries the type-specific parameters of a recurrence
// rule. Which fields matter depends on the type: {Hour, Minute} for daily,
// {DayOfWeek, Hour, Minute} for weekly, {DayOfMonth, Hour, Minute} for
// monthly, {Value, Unit} for interval, Expression for cron.
type RecurrenceConfig struct {
	Hour       *int   `json:"hour,omitempty"`
	Minute     *int   `json:"minute,omitempty"`
	DayOfWeek  *int   `json:"day_of_week,omitempty"` // 0 = Sunday, matching time.Weekday
	DayOfMonth *int   `json:"day_of_month,omitempty"`
	Value      *int   `json:"value,omitempty"`
	Unit       string `json:"unit,omitempty"` // "minutes" or "hours"
	Expression string `json:"expression,omitempty"`
}

// Defaults applied when config fields are missing or out of range.
// Deliberately best-effort: a malformed rule degrades to a sane schedule
// instead of freezing the job.
const (
	defaultHour            = 9
	defaultMinute          = 0
	defaultDayOfMonth      = 1
	defaultIntervalMinutes = 60
)

const defaultDayOfWeek = time.Monday

// ParseRecurrenceConfig decodes the persisted JSON form of a recurrence
// config. An empty string yields the zero config (all defaults apply).
func ParseRecurrenceConfig(raw string) (RecurrenceConfig, error) {
	var cfg RecurrenceConfig
	if raw == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse recurrence config")
	}
	return cfg, nil
}

// Marshal encodes the config to its persisted JSON form
func (c RecurrenceConfig) Marshal() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal recurrence config")
	}
	return string(data), nil
}

// NextRun computes the next eligible run instant strictly after now, in the
// schedule's zone. A nil result with nil error means the schedule is
// terminal: one-shots never recur.
//
// All wall-clock math (hour-of-day, day-of-week, day-of-month) is evaluated
// in the given IANA zone, not UTC. An unknown zone falls back to UTC.
// Day-of-month 31 against a shorter month clamps to the month's last day.
func NextRun(rt RecurrenceType, cfg RecurrenceConfig, timezone string, now time.Time) (*time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	switch rt {
	case RecurrenceOnce:
		return nil, nil

	case RecurrenceHourly:
		next := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc).Add(time.Hour)
		return &next, nil

	case RecurrenceDaily:
		hour, minute := cfg.hourMinute()
		next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return &next, nil

	case RecurrenceWeekly:
		hour, minute := cfg.hourMinute()
		target := cfg.weekday()
		next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
		if days := int(target-next.Weekday()+7) % 7; days > 0 {
			next = next.AddDate(0, 0, days)
		}
		// Same weekday with the time already past advances a full week, never zero
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return &next, nil

	case RecurrenceMonthly:
		hour, minute := cfg.hourMinute()
		day := cfg.dayOfMonth()
		next := monthlyAt(local.Year(), local.Month(), day, hour, minute, loc)
		if !next.After(now) {
			year, month := local.Year(), local.Month()+1
			next = monthlyAt(year, month, day, hour, minute, loc)
		}
		return &next, nil

	case RecurrenceInterval:
		next := now.Add(cfg.interval())
		return &next, nil

	case RecurrenceCron:
		if cfg.Expression == "" {
			return nil, errors.New("cron recurrence requires an expression")
		}
		schedule, err := cron.ParseStandard(cfg.Expression)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid cron expression %q", cfg.Expression)
		}
		next := schedule.Next(local)
		return &next, nil

	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedRecurrence, "%q", rt)
	}
}

// monthlyAt builds the run instant for a day-of-month rule, clamping the day
// to the target month's length (31st of a 30-day month runs on the 30th).
// The month may be out of range; time.Date normalizes it first.
func monthlyAt(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	// Normalize year/month before clamping
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, minute, 0, 0, loc)
}

// daysInMonth returns the number of days in the given month, leap-year aware
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (c RecurrenceConfig) hourMinute() (int, int) {
	hour, minute := defaultHour, defaultMinute
	if c.Hour != nil && *c.Hour >= 0 && *c.Hour <= 23 {
		hour = *c.Hour
	}
	if c.Minute != nil && *c.Minute >= 0 && *c.Minute <= 59 {
		minute = *c.Minute
	}
	return hour, minute
}

func (c RecurrenceConfig) weekday() time.Weekday {
	if c.DayOfWeek != nil && *c.DayOfWeek >= 0 && *c.DayOfWeek <= 6 {
		return time.Weekday(*c.DayOfWeek)
	}
	return defaultDayOfWeek
}

func (c RecurrenceConfig) dayOfMonth() int {
	if c.DayOfMonth != nil && *c.DayOfMonth >= 1 && *c.DayOfMonth <= 31 {
		return *c.DayOfMonth
	}
	return defaultDayOfMonth
}

func (c RecurrenceConfig) interval() time.Duration {
	value := defaultIntervalMinutes
	unit := time.Minute
	if c.Unit == "hours" {
		unit = time.Hour
		value = 1
	}
	if c.Value != nil && *c.Value > 0 {
		value = *c.Value
	}
	return time.Duration(value) * unit
}
