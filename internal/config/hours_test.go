package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TradingHoursTestSuite struct {
	suite.Suite
	hours TradingHours
}

func TestTradingHoursTestSuite(t *testing.T) {
	suite.Run(t, new(TradingHoursTestSuite))
}

func (s *TradingHoursTestSuite) SetupTest() {
	s.hours = TradingHours{
		Start:        "09:15",
		End:          "15:30",
		WeekdaysOnly: true,
		Timezone:     "Asia/Kolkata",
	}
}

func (s *TradingHoursTestSuite) ist(year int, month time.Month, day, hour, min int) time.Time {
	loc, err := time.LoadLocation("Asia/Kolkata")
	s.Require().NoError(err)

	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

func (s *TradingHoursTestSuite) TestInsideWindow() {
	// 2024-01-03 is a Wednesday
	s.True(s.hours.Contains(s.ist(2024, 1, 3, 10, 0)))
	s.True(s.hours.Contains(s.ist(2024, 1, 3, 9, 15)))
	s.True(s.hours.Contains(s.ist(2024, 1, 3, 15, 30)))
}

func (s *TradingHoursTestSuite) TestOutsideWindow() {
	s.False(s.hours.Contains(s.ist(2024, 1, 3, 9, 14)))
	s.False(s.hours.Contains(s.ist(2024, 1, 3, 15, 31)))
	s.False(s.hours.Contains(s.ist(2024, 1, 3, 2, 0)))
}

func (s *TradingHoursTestSuite) TestWeekendsAreClosed() {
	// 2024-01-06 is a Saturday
	s.False(s.hours.Contains(s.ist(2024, 1, 6, 10, 0)))
	// 2024-01-07 is a Sunday
	s.False(s.hours.Contains(s.ist(2024, 1, 7, 10, 0)))
}

func (s *TradingHoursTestSuite) TestWeekendsAllowedWhenNotWeekdaysOnly() {
	s.hours.WeekdaysOnly = false
	s.True(s.hours.Contains(s.ist(2024, 1, 6, 10, 0)))
}

func (s *TradingHoursTestSuite) TestTimezoneConversion() {
	// 04:30 UTC is 10:00 IST on the same Wednesday
	utc := time.Date(2024, 1, 3, 4, 30, 0, 0, time.UTC)
	s.True(s.hours.Contains(utc))
}
