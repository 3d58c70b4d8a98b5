package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"isomero/internal/cache"
	"isomero/internal/calendar"
	"isomero/internal/hours"
	"isomero/internal/livestatus"
	"isomero/internal/metrics"
	"isomero/internal/model"
	"isomero/internal/store"
)

const requestIDHeader = "X-Request-ID"

// Config configures the read API.
type Config struct {
	Port            int
	RateLimitRPS    float64
	RateLimitBurst  int
	DefaultLocation model.Location
	// LocationName returns the display name of a site, read on every
	// request so hours.yaml edits show up without a restart.
	LocationName func(model.Location) string
	TimeLocation *time.Location
}

// HTTPServer serves resolved opening hours over JSON.
type HTTPServer struct {
	holder   *store.Holder
	resolver *hours.Resolver
	builder  *calendar.Builder
	live     *livestatus.Service
	cache    *cache.MonthCache
	cfg      Config
	logger   zerolog.Logger
	limiter  *rate.Limiter
	now      func() time.Time
	server   *http.Server
}

func NewHTTPServer(
	cfg Config,
	holder *store.Holder,
	resolver *hours.Resolver,
	monthCache *cache.MonthCache,
	logger zerolog.Logger,
) *HTTPServer {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.TimeLocation == nil {
		cfg.TimeLocation = time.UTC
	}
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = model.LocationGishushu
	}

	s := &HTTPServer{
		holder:   holder,
		resolver: resolver,
		builder:  calendar.NewBuilder(resolver),
		live:     livestatus.NewService(resolver),
		cache:    monthCache,
		cfg:      cfg,
		logger:   logger.With().Str("component", "api").Logger(),
		now:      time.Now,
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitRPS) + 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/locations", s.handleLocations)
	mux.HandleFunc("/api/v1/day", s.handleDay)
	mux.HandleFunc("/api/v1/calendar", s.handleCalendar)
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/closures", s.handleClosures)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.withRequestID(s.withRateLimit(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start listens until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("API server started")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		logger := s.logger.With().Str("request_id", id).Str("path", r.URL.Path).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

func (s *HTTPServer) withRateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			metrics.IncRateLimited()
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.holder.Ready() {
		http.Error(w, "schedule snapshot not loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// snapshotFor loads the current snapshot and resolves the location query
// parameter against it. It writes the error response itself.
func (s *HTTPServer) snapshotFor(w http.ResponseWriter, r *http.Request) (*store.Snapshot, model.Location, bool) {
	snap, err := s.holder.Current()
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Request before first snapshot")
		writeError(w, http.StatusServiceUnavailable, "schedule data not loaded yet")
		return nil, "", false
	}

	loc := s.cfg.DefaultLocation
	if raw := r.URL.Query().Get("location"); raw != "" {
		loc, _ = model.ParseLocation(raw)
	}
	if !snap.HasLocation(loc) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown location %q", loc))
		return nil, "", false
	}
	return snap, loc, true
}

// requireWindow rejects requests for dates whose exceptions were not loaded;
// resolving them would silently drop closures.
func requireWindow(w http.ResponseWriter, snap *store.Snapshot, from, to time.Time, what string) bool {
	if snap.CoversRange(from, to) {
		return true
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("%s is outside the loaded schedule window (%s)", what, snap.Window()))
	return false
}

func (s *HTTPServer) locationName(loc model.Location) string {
	if s.cfg.LocationName != nil {
		if name := s.cfg.LocationName(loc); name != "" {
			return name
		}
	}
	return loc.String()
}

func (s *HTTPServer) today() time.Time {
	return s.now().In(s.cfg.TimeLocation)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
