package marketcalendar

import "testing"

func TestIsTradingSessionLabelsKnownDay(t *testing.T) {
	cal, stageErr := NewCalendar([]Dataset{
		{Exchange: "nyse", Year: 2026, Days: []Session{
			{DayUTC: "2026-02-13", IsTradingSession: true},
			{DayUTC: "2026-02-16", IsTradingSession: false},
		}},
	})
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}

	if got := cal.IsTradingSession("NYSE", "2026-02-13"); got != LabelTradingDay {
		t.Fatalf("expected TRADING_DAY, got %s", got)
	}
	if got := cal.IsTradingSession("nyse", "2026-02-16"); got != LabelNonTradingDay {
		t.Fatalf("expected NON_TRADING_DAY, got %s", got)
	}
}

func TestIsTradingSessionUnknownForUnseenExchange(t *testing.T) {
	cal, stageErr := NewCalendar(nil)
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	if got := cal.IsTradingSession("NYSE", "2026-02-13"); got != LabelUnknown {
		t.Fatalf("expected UNKNOWN for an unseen exchange, got %s", got)
	}
}

func TestIsTradingSessionUnknownForMissingDay(t *testing.T) {
	cal, stageErr := NewCalendar([]Dataset{
		{Exchange: "NYSE", Year: 2026, Days: []Session{{DayUTC: "2026-02-13", IsTradingSession: true}}},
	})
	if stageErr != nil {
		t.Fatalf("unexpected failure: %v", stageErr)
	}
	if got := cal.IsTradingSession("NYSE", "2026-02-17"); got != LabelUnknown {
		t.Fatalf("expected UNKNOWN for a day missing from a known exchange, got %s", got)
	}
}

func TestNewCalendarFailsClosedOnDuplicateDay(t *testing.T) {
	_, stageErr := NewCalendar([]Dataset{
		{Exchange: "NYSE", Year: 2026, Days: []Session{
			{DayUTC: "2026-02-13", IsTradingSession: true},
			{DayUTC: "2026-02-13", IsTradingSession: false},
		}},
	})
	if stageErr == nil {
		t.Fatal("expected a fail-closed error for a duplicate calendar day")
	}
}
