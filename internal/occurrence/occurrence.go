// Package occurrence computes the concrete calendar instants at which a
// task is due. It is pure date arithmetic and performs no I/O.
package occurrence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/taskhive/go-reminder-service/internal/domain"
)

// ParseClock parses an "HH:mm" time-of-day string. An empty string is not
// an error for callers that treat "no time of day" as "no notifications",
// but it is rejected here so they must decide explicitly.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day %q out of range", s)
	}
	return hour, minute, nil
}

// NextOccurrence returns the weekOffset-th occurrence of day at hour:minute
// on or after from. If from falls on day and hour:minute has not yet
// passed, offset 0 is from's own date; otherwise it is the nearest future
// date with that weekday. An occurrence exactly equal to from counts as
// already passed.
func NextOccurrence(day time.Weekday, hour, minute int, loc *time.Location, weekOffset int, from time.Time) (time.Time, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("time of day %02d:%02d out of range", hour, minute)
	}
	if day < time.Sunday || day > time.Saturday {
		return time.Time{}, fmt.Errorf("invalid weekday %d", day)
	}
	if loc == nil {
		loc = from.Location()
	}

	from = from.In(loc)
	daysAhead := (int(day) - int(from.Weekday()) + 7) % 7
	candidate := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, loc)
	candidate = candidate.AddDate(0, 0, daysAhead)
	if daysAhead == 0 && !candidate.After(from) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate.AddDate(0, 0, 7*weekOffset), nil
}

// BoundedOccurrences produces the finite set of future occurrences for a
// weekday-recurring task, sorted ascending.
//
// With RepeatWeeks set, each weekday's sub-sequence stops once it passes
// RepeatStartDate + RepeatWeeks*7 days; a hard cap of RepeatWeeks*2
// iterations per weekday guards against inconsistent repeat bounds. With
// RepeatWeeks unset, only the next occurrence per weekday is produced;
// recurring-forever tasks extend their horizon on each re-schedule.
//
// A task whose AvailableDaysTime is empty yields no occurrences at all:
// "no time of day" means "anytime, don't nag".
func BoundedOccurrences(task *domain.Task, loc *time.Location, from time.Time) []time.Time {
	hour, minute, err := ParseClock(task.AvailableDaysTime)
	if err != nil {
		return nil
	}

	var out []time.Time
	for _, day := range task.AvailableDays {
		if task.RepeatWeeks <= 0 {
			occ, err := NextOccurrence(day, hour, minute, loc, 0, from)
			if err != nil {
				continue
			}
			out = append(out, occ)
			continue
		}

		windowStart := from
		if task.RepeatStartDate != nil {
			windowStart = *task.RepeatStartDate
		}
		windowEnd := windowStart.AddDate(0, 0, 7*task.RepeatWeeks)

		maxIterations := task.RepeatWeeks * 2
		for week := 0; week < maxIterations; week++ {
			occ, err := NextOccurrence(day, hour, minute, loc, week, from)
			if err != nil {
				break
			}
			if occ.After(windowEnd) {
				break
			}
			out = append(out, occ)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
