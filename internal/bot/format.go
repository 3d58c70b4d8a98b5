package bot

import (
	"fmt"
	"strings"
	"time"

	"isomero/internal/model"
)

// formatStatus renders the live status message for one location.
func formatStatus(name string, live model.LiveStatus, today model.DayStatus, now time.Time) string {
	var sb strings.Builder
	if live.IsOpen {
		fmt.Fprintf(&sb, "🟢 %s is open now", name)
	} else {
		fmt.Fprintf(&sb, "🔴 %s is closed", name)
	}
	if live.Message != "" {
		fmt.Fprintf(&sb, "\n%s", live.Message)
	}

	if live.NextChange != nil {
		next := live.NextChange.In(now.Location())
		verb := "Opens"
		if live.IsOpen {
			verb = "Closes"
		}
		fmt.Fprintf(&sb, "\n%s %s", verb, formatWhen(next, now))
		switch {
		case live.ClosingSoon(now):
			sb.WriteString(" (closing soon)")
		case live.OpeningSoon(now):
			sb.WriteString(" (opening soon)")
		}
	}

	if h := today.Hours(); h != "" {
		fmt.Fprintf(&sb, "\nToday: %s", h)
	}
	return sb.String()
}

// formatWhen says "at 3:00 PM" for today and "Sun 18 Oct at 9:00 AM" otherwise.
func formatWhen(t, now time.Time) string {
	clock := t.Format("3:04 PM")
	if model.SameDate(t, now) {
		return "at " + clock
	}
	if model.SameDate(t, now.AddDate(0, 0, 1)) {
		return "tomorrow at " + clock
	}
	return t.Format("Mon 2 Jan") + " at " + clock
}

// formatDay renders one resolved date.
func formatDay(name string, st model.DayStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 %s, %s\n", st.Date.Format("Monday 2 January 2006"), name)
	if st.IsClosed {
		sb.WriteString("Closed")
	} else {
		sb.WriteString(st.Hours())
		if st.HasSpecialHours {
			sb.WriteString(" (special hours)")
		}
	}
	if note := st.Note(); note != "" {
		fmt.Fprintf(&sb, "\n%s", note)
	}
	return sb.String()
}
