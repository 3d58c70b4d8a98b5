package api

import (
	"net/http"
	"strconv"
	"time"

	"isomero/internal/cache"
	"isomero/internal/calendar"
	"isomero/internal/metrics"
	"isomero/internal/model"
)

const (
	// MaxMonthOffset bounds how far from the current month a calendar can be requested.
	MaxMonthOffset = 24
	// MaxClosureDays is the maximum preview window for upcoming closures.
	MaxClosureDays = 90
	// DefaultClosureDays is used when days is not given.
	DefaultClosureDays = 30
)

// LocationResponse describes one library site.
type LocationResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DayResponse is the resolved status for one date.
type DayResponse struct {
	Date            string `json:"date"`
	Location        string `json:"location"`
	IsClosed        bool   `json:"is_closed"`
	IsException     bool   `json:"is_exception"`
	HasSpecialHours bool   `json:"has_special_hours"`
	Open            string `json:"open,omitempty"`  // Format: HH:MM, raw text if unparseable
	Close           string `json:"close,omitempty"` // Format: HH:MM, raw text if unparseable
	Hours           string `json:"hours,omitempty"` // Display form, e.g. "8:00 AM – 8:00 PM"
	Message         string `json:"message,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Source          string `json:"source"`
}

// CalendarDayResponse is one grid cell.
type CalendarDayResponse struct {
	DayResponse
	IsCurrentMonth bool `json:"is_current_month"`
	IsToday        bool `json:"is_today"`
}

// CalendarResponse is a Sunday-first six-week grid.
type CalendarResponse struct {
	Month    string                  `json:"month"`
	Location string                  `json:"location"`
	Weeks    [][]CalendarDayResponse `json:"weeks"`
}

// StatusResponse is the live "open now" answer.
type StatusResponse struct {
	Location    string      `json:"location"`
	IsOpen      bool        `json:"is_open"`
	Message     string      `json:"message,omitempty"`
	NextChange  *time.Time  `json:"next_change,omitempty"`
	ClosingSoon bool        `json:"closing_soon"`
	OpeningSoon bool        `json:"opening_soon"`
	Today       DayResponse `json:"today"`
}

func dayResponse(st model.DayStatus) DayResponse {
	resp := DayResponse{
		Date:            st.Date.Format(model.DateLayout),
		Location:        st.Location.String(),
		IsClosed:        st.IsClosed,
		IsException:     st.IsException,
		HasSpecialHours: st.HasSpecialHours,
		Hours:           st.Hours(),
		Message:         st.Message,
		Reason:          st.Reason,
		Source:          string(st.Source),
	}
	if st.Open != nil {
		resp.Open = st.Open.HHMM()
	}
	if st.Close != nil {
		resp.Close = st.Close.HHMM()
	}
	return resp
}

// handleLocations lists known sites.
// GET /api/v1/locations
func (s *HTTPServer) handleLocations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("locations")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, err := s.holder.Current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "schedule data not loaded yet")
		return
	}

	out := make([]LocationResponse, 0, len(snap.Locations))
	for _, loc := range snap.Locations {
		out = append(out, LocationResponse{Code: loc.String(), Name: s.locationName(loc)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": out})
}

// handleDay resolves a single date, today by default.
// GET /api/v1/day?date=YYYY-MM-DD&location=GISHUSHU
func (s *HTTPServer) handleDay(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("day")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, loc, ok := s.snapshotFor(w, r)
	if !ok {
		return
	}

	date := s.today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := model.ParseDate(raw, s.cfg.TimeLocation)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		date = d
	}
	if !requireWindow(w, snap, date, date, "date") {
		return
	}

	st := s.resolver.ResolveDay(date, loc, snap.Schedules, snap.Exceptions)
	writeJSON(w, http.StatusOK, dayResponse(st))
}

// handleCalendar returns the month grid, the current month by default.
// GET /api/v1/calendar?month=YYYY-MM&location=GISHUSHU
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, loc, ok := s.snapshotFor(w, r)
	if !ok {
		return
	}

	today := s.today()
	current := calendar.MonthOf(today)
	ym := current
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := calendar.ParseYearMonth(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid month format; expected YYYY-MM")
			return
		}
		ym = parsed
	}
	if offset := current.MonthsUntil(ym); offset > MaxMonthOffset || offset < -MaxMonthOffset {
		writeError(w, http.StatusBadRequest, "month is out of range; at most 24 months from the current month")
		return
	}
	gridStart, gridEnd := ym.GridRange(s.cfg.TimeLocation)
	if !requireWindow(w, snap, gridStart, gridEnd, "month") {
		return
	}

	key := cache.Key(snap.Version, loc, ym.String(), today)
	views, hit := s.cache.Get(r.Context(), key)
	if !hit {
		views = s.builder.BuildMonth(ym, loc, snap.Schedules, snap.Exceptions, today)
		s.cache.Set(r.Context(), key, views)
	}

	resp := CalendarResponse{Month: ym.String(), Location: loc.String()}
	for _, week := range calendar.SplitWeeks(views) {
		row := make([]CalendarDayResponse, 0, len(week))
		for _, v := range week {
			row = append(row, CalendarDayResponse{
				DayResponse:    dayResponse(v.DayStatus),
				IsCurrentMonth: v.IsCurrentMonth,
				IsToday:        v.IsToday,
			})
		}
		resp.Weeks = append(resp.Weeks, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStatus reports whether the location is open right now.
// GET /api/v1/status?location=GISHUSHU
func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("status")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, loc, ok := s.snapshotFor(w, r)
	if !ok {
		return
	}

	now := s.today()
	live := s.live.Compute(now, loc, snap.Schedules, snap.Exceptions)
	today := s.resolver.ResolveDay(now, loc, snap.Schedules, snap.Exceptions)

	writeJSON(w, http.StatusOK, StatusResponse{
		Location:    loc.String(),
		IsOpen:      live.IsOpen,
		Message:     live.Message,
		NextChange:  live.NextChange,
		ClosingSoon: live.ClosingSoon(now),
		OpeningSoon: live.OpeningSoon(now),
		Today:       dayResponse(today),
	})
}

// handleClosures previews upcoming closed or modified days starting today.
// GET /api/v1/closures?location=GISHUSHU&days=30
func (s *HTTPServer) handleClosures(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("closures")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, loc, ok := s.snapshotFor(w, r)
	if !ok {
		return
	}

	days := DefaultClosureDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		if n > MaxClosureDays {
			writeError(w, http.StatusBadRequest, "date range too large; maximum is 90 days")
			return
		}
		days = n
	}

	start := s.today()
	if !requireWindow(w, snap, start, start.AddDate(0, 0, days-1), "date range") {
		return
	}

	out := make([]DayResponse, 0)
	for _, st := range s.resolver.ResolveRange(start, days, loc, snap.Schedules, snap.Exceptions) {
		if st.IsException {
			out = append(out, dayResponse(st))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"location": loc.String(), "days": days, "closures": out})
}
