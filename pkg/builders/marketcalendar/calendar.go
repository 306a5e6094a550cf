package marketcalendar

import (
	"strings"

	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
)

func fail(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryNone, reasoncode.LineageViolation, detail, cause)
}

// Calendar is an in-memory index of exchange/day trading-session flags.
type Calendar struct {
	sessions map[string]map[string]bool
}

// NewCalendar builds a Calendar from a set of exchange-year datasets.
// Unlike the loader it is adapted from, which raises on a corrupt
// manifest at load time, this construction step still fails closed on
// genuinely ambiguous input -- a duplicate day within the same
// exchange-year is a data-integrity break the caller must fix upstream,
// not a labeling nuance -- since an ambiguous calendar is worse than a
// missing one.
func NewCalendar(datasets []Dataset) (*Calendar, *failclosed.StageError) {
	c := &Calendar{sessions: map[string]map[string]bool{}}

	for _, ds := range datasets {
		exchange := strings.ToUpper(strings.TrimSpace(ds.Exchange))
		if exchange == "" {
			return nil, fail("dataset carries no exchange", nil)
		}
		days, ok := c.sessions[exchange]
		if !ok {
			days = map[string]bool{}
			c.sessions[exchange] = days
		}
		for _, s := range ds.Days {
			if s.DayUTC == "" {
				return nil, fail("a calendar session carries no day_utc for exchange "+exchange, nil)
			}
			if _, dup := days[s.DayUTC]; dup {
				return nil, fail("duplicate calendar day "+s.DayUTC+" for exchange "+exchange, nil)
			}
			days[s.DayUTC] = s.IsTradingSession
		}
	}

	return c, nil
}

// IsTradingSession labels a day for an exchange. It never errors: an
// exchange this calendar has never seen, or a day missing from an
// exchange it does know, both report LabelUnknown so a caller can
// render "unknown" in a report rather than veto anything on a gap in
// calendar data.
func (c *Calendar) IsTradingSession(exchange, dayUTC string) Label {
	days, ok := c.sessions[strings.ToUpper(strings.TrimSpace(exchange))]
	if !ok {
		return LabelUnknown
	}
	isTrading, ok := days[dayUTC]
	if !ok {
		return LabelUnknown
	}
	if isTrading {
		return LabelTradingDay
	}
	return LabelNonTradingDay
}
