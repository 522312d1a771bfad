package calc

import (
	"fmt"
	"math"

	"github.com/zeitkonto/zeitkonto/pkg/entry"
)

var ErrInvalidTime = fmt.Errorf("invalid time of day")

// Config carries the working-time policy constants. The weekly target is
// authoritative; the per-day targets only steer display helpers such as the
// suggested exit time.
type Config struct {
	WeeklyTargetMinutes int
	DailyTargetHours    float64
	FridayTargetHours   float64
	BreakMinutes        int
	BreakThresholdHours float64
}

// DefaultConfig is the public-sector 36-hour week: 7.5 h Monday-Thursday,
// 6 h Friday, with a 30-minute break deducted past 6 worked hours.
func DefaultConfig() Config {
	return Config{
		WeeklyTargetMinutes: 2160,
		DailyTargetHours:    7.5,
		FridayTargetHours:   6,
		BreakMinutes:        30,
		BreakThresholdHours: 6,
	}
}

// Calculator derives worked minutes from entries. It holds no mutable state;
// every call is independent and idempotent given the same inputs.
type Calculator struct {
	cfg Config
}

func New(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

func (c *Calculator) Config() Config {
	return c.cfg
}

// DayResult is the outcome of computing one day's worked time.
type DayResult struct {
	// Minutes is the net worked time after break deduction.
	Minutes   int
	Formatted string
	// HasIncomplete is set when the day has more clock-ins than clock-outs.
	HasIncomplete bool
	GrossMinutes  int
	PauseApplied  bool
}

// DayHours computes one day's worked minutes from its recorded entries.
//
// A single special entry short-circuits to its credited hours; no break logic
// applies. Otherwise clock-ins are paired with clock-outs in recorded order
// and only positive pair spans count, guarding against out-of-order or equal
// times. The break is deducted on every day of the week, Friday included,
// whenever gross time exceeds the threshold; Friday only shortens the daily
// target, never the break.
func (c *Calculator) DayHours(entries []entry.Entry) DayResult {
	if len(entries) == 0 {
		return DayResult{Formatted: MinutesToTime(0)}
	}

	if len(entries) == 1 && entries[0].Type.IsSpecial() {
		minutes := 0
		if entries[0].Hours != nil {
			minutes = int(math.Round(*entries[0].Hours * 60))
		}
		return DayResult{
			Minutes:      minutes,
			Formatted:    MinutesToTime(minutes),
			GrossMinutes: minutes,
		}
	}

	var ins, outs []int
	for _, e := range entries {
		if e.Time == nil {
			if e.Type == entry.ClockIn {
				ins = append(ins, -1)
			} else if e.Type == entry.ClockOut {
				outs = append(outs, -1)
			}
			continue
		}
		minutes, err := TimeToMinutes(*e.Time)
		if err != nil {
			minutes = -1
		}
		switch e.Type {
		case entry.ClockIn:
			ins = append(ins, minutes)
		case entry.ClockOut:
			outs = append(outs, minutes)
		}
	}

	gross := 0
	pairs := len(ins)
	if len(outs) < pairs {
		pairs = len(outs)
	}
	for i := 0; i < pairs; i++ {
		if ins[i] < 0 || outs[i] < 0 {
			continue
		}
		if diff := outs[i] - ins[i]; diff > 0 {
			gross += diff
		}
	}

	result := DayResult{
		Minutes:       gross,
		GrossMinutes:  gross,
		HasIncomplete: len(ins) > len(outs),
	}
	if float64(gross)/60 > c.cfg.BreakThresholdHours {
		result.Minutes = gross - c.cfg.BreakMinutes
		if result.Minutes < 0 {
			result.Minutes = 0
		}
		result.PauseApplied = true
	}
	result.Formatted = MinutesToTime(result.Minutes)
	return result
}

// WeekResult aggregates the daily results of one week.
type WeekResult struct {
	TotalMinutes int
	Formatted    string
	Days         map[string]DayResult
}

// WeekTotal sums DayHours over all date keys present in the week payload.
func (c *Calculator) WeekTotal(weekEntries map[string][]entry.Entry) WeekResult {
	result := WeekResult{Days: make(map[string]DayResult, len(weekEntries))}
	for date, entries := range weekEntries {
		day := c.DayHours(entries)
		result.Days[date] = day
		result.TotalMinutes += day.Minutes
	}
	result.Formatted = MinutesToTime(result.TotalMinutes)
	return result
}

// Balance is the difference between worked minutes and the weekly target.
type Balance struct {
	Minutes int
}

// Balance computes the week balance against the configured weekly target.
func (c *Calculator) Balance(workedMinutes int) Balance {
	return Balance{Minutes: workedMinutes - c.cfg.WeeklyTargetMinutes}
}

func (b Balance) IsPositive() bool { return b.Minutes > 0 }
func (b Balance) IsNegative() bool { return b.Minutes < 0 }
func (b Balance) IsNeutral() bool  { return b.Minutes == 0 }

// Formatted renders the balance as a sign-prefixed duration, e.g. "+00:40".
// The numeral is always non-negative; the sign is carried separately.
func (b Balance) Formatted() string {
	if b.Minutes < 0 {
		return "-" + MinutesToTime(b.Minutes)
	}
	return "+" + MinutesToTime(b.Minutes)
}

// EstimateExitTime projects the clock-out time that reaches the given daily
// target from the given clock-in, adding the break when the target itself
// crosses the break threshold. Used to suggest an early leave on Friday.
func (c *Calculator) EstimateExitTime(clockInTime string, targetHours float64, includePause bool) (string, error) {
	start, err := TimeToMinutes(clockInTime)
	if err != nil {
		return "", err
	}
	exit := start + int(math.Round(targetHours*60))
	if includePause && targetHours > c.cfg.BreakThresholdHours {
		exit += c.cfg.BreakMinutes
	}
	return MinutesToTime(exit % (24 * 60)), nil
}

// TimeToMinutes converts a 24-hour "HH:MM" string to minutes since midnight.
func TimeToMinutes(s string) (int, error) {
	if !entry.ValidTimeOfDay(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h*60 + m, nil
}

// MinutesToTime renders minutes as "HH:MM". Negative input is clamped by
// absolute value; the numeral never carries a sign.
func MinutesToTime(minutes int) string {
	if minutes < 0 {
		minutes = -minutes
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
