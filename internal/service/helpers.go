package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/postforge/autoposter/internal/models"
)

// ReviewDeadlineAt computes the instant a pending draft expires: the
// calendar date of scheduledFor in the profile's timezone, at deadlineHour
// local time. Going through time.LoadLocation keeps the result correct for
// non-integer UTC offsets. A deadline that already passed is clamped to an
// hour from now so a late generation still gets a review window.
func ReviewDeadlineAt(scheduledFor time.Time, timezone string, deadlineHour int, now time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	if deadlineHour < 0 || deadlineHour > 23 {
		return time.Time{}, fmt.Errorf("invalid review deadline hour %d", deadlineHour)
	}

	local := scheduledFor.In(loc)
	deadline := time.Date(local.Year(), local.Month(), local.Day(), deadlineHour, 0, 0, 0, loc)

	if minimum := now.Add(time.Hour); deadline.Before(minimum) {
		deadline = minimum
	}
	return deadline, nil
}

// NextScheduledSlot finds the next enabled posting slot strictly after now,
// scanning up to a week ahead in the profile's timezone. The second return
// is false when no weekday is enabled or every post time is malformed.
func NextScheduledSlot(schedule [7]models.DaySchedule, timezone string, now time.Time) (time.Time, bool, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	local := now.In(loc)
	for offset := 0; offset <= 7; offset++ {
		day := local.AddDate(0, 0, offset)
		entry := schedule[int(day.Weekday())]
		if !entry.Enabled {
			continue
		}

		parsed, err := time.Parse("15:04", entry.PostTime)
		if err != nil {
			continue
		}

		slot := time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc)
		if slot.After(now) {
			return slot, true, nil
		}
	}
	return time.Time{}, false, nil
}

// ContinuitySummary trims a published post's text down to the bounded
// summary carried into the next generation in the same series.
func ContinuitySummary(content string) string {
	const maxLen = 500

	content = strings.TrimSpace(content)
	if len(content) <= maxLen {
		return content
	}

	cut := content[:maxLen]
	if i := strings.LastIndexByte(cut, ' '); i > maxLen/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
