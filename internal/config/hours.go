package config

import "time"

// Contains reports whether t falls inside the trading window. The check
// runs in the configured timezone; an unparseable config never gets here
// because Validate rejects it.
func (h TradingHours) Contains(t time.Time) bool {
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return false
	}

	local := t.In(loc)

	if h.WeekdaysOnly {
		switch local.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
	}

	start, err := time.Parse("15:04", h.Start)
	if err != nil {
		return false
	}

	end, err := time.Parse("15:04", h.End)
	if err != nil {
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	return minutes >= startMin && minutes <= endMin
}
