// Package api exposes HTTP handlers for leaderboards, athlete stats, and
// sync administration.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/clubsync/internal/auth"
	"example.com/clubsync/internal/cache"
	"example.com/clubsync/internal/domain"
	"example.com/clubsync/internal/scoring"
	syncengine "example.com/clubsync/internal/sync"
)

// Handler coordinates HTTP requests with storage, scoring, and the sync runner.
type Handler struct {
	store      domain.Store
	runner     *syncengine.Runner
	cache      *cache.Leaderboards
	reconciler *syncengine.Reconciler

	// exchanger and provider back the optional connect flow.
	exchanger CodeExchanger
	provider  ProviderClient

	// runCtx is the context admin-triggered runs execute under. It must be
	// tied to process lifecycle, not to the triggering request.
	runCtx context.Context

	now func() time.Time
}

// HandlerOption configures optional handler behaviour.
type HandlerOption func(*Handler)

// WithRunContext sets the lifecycle context for admin-triggered sync runs.
func WithRunContext(ctx context.Context) HandlerOption {
	return func(h *Handler) { h.runCtx = ctx }
}

// NewHandler builds a Handler.
func NewHandler(store domain.Store, runner *syncengine.Runner, leaderboards *cache.Leaderboards, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:      store,
		runner:     runner,
		cache:      leaderboards,
		reconciler: syncengine.NewReconciler(store),
		runCtx:     context.Background(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/groups/", h.groups)
	mux.HandleFunc("/v1/athletes/", h.athleteStats)
	mux.HandleFunc("/v1/admin/sync", h.triggerSync)
	mux.HandleFunc("/v1/admin/sync/", h.syncStatus)
	mux.HandleFunc("/healthz", healthz)
	if h.exchanger != nil && h.provider != nil {
		mux.HandleFunc("/v1/auth/connect", h.connect)
	}
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// groups dispatches /v1/groups/{id}/{view} to the matching scoreboard.
func (h *Handler) groups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireScope(w, r, auth.ScopeLeaderboardRead) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/groups/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing group id")
		return
	}
	groupID, view := parts[0], parts[1]

	if view == "years" {
		h.groupYears(w, r, groupID)
		return
	}

	year := h.yearParam(r)
	activities, err := h.loadGroupYear(r.Context(), groupID, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	switch view {
	case "leaderboard":
		h.leaderboard(w, r, groupID, year, activities)
	case "regularity":
		h.regularity(w, groupID, year, activities)
	case "sunday":
		h.sunday(w, r, groupID, year, activities)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown group view")
	}
}

// loadGroupYear serves one group season from the cache, falling back to the
// store on a miss. The cache holds raw rows rather than rendered responses,
// so every view and query-parameter combination shares one entry.
func (h *Handler) loadGroupYear(ctx context.Context, groupID string, year int) ([]domain.GroupActivity, error) {
	key := cache.Key{GroupID: groupID, Year: year}
	if cached, ok := h.cache.Get(key); ok {
		if activities, ok := cached.([]domain.GroupActivity); ok {
			return activities, nil
		}
	}

	activities, err := h.store.ListByGroupYear(ctx, groupID, year)
	if err != nil {
		return nil, err
	}
	h.cache.Set(key, activities)
	return activities, nil
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request, groupID string, year int, activities []domain.GroupActivity) {
	metric := scoring.MetricKilometers
	switch r.URL.Query().Get("metric") {
	case "", "km":
	case "elevation":
		metric = scoring.MetricElevation
	case "time":
		metric = scoring.MetricTime
	default:
		writeError(w, http.StatusBadRequest, "validation_failed", "metric must be km, elevation, or time")
		return
	}

	totals := scoring.Totals(activities, metric)
	rows := make([]TotalsRow, 0, len(totals))
	for i, t := range totals {
		rows = append(rows, TotalsRow{
			Rank:          i + 1,
			AthleteID:     t.AthleteID,
			FirstName:     t.FirstName,
			AvatarURL:     t.AvatarURL,
			Rides:         t.Rides,
			Kilometers:    t.Kilometers,
			ElevationGain: t.ElevationGain,
			MovingTimeSec: t.MovingTimeSec,
			AvgKmPerRide:  t.AvgKmPerRide,
			AvgSpeedKmh:   t.AvgSpeedKmh,
		})
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{
		GroupID: groupID,
		Year:    year,
		Metric:  string(metric),
		Rows:    rows,
	})
}

func (h *Handler) regularity(w http.ResponseWriter, groupID string, year int, activities []domain.GroupActivity) {
	monthly, standings := scoring.MonthlyPoints(activities)

	months := make([]MonthlyScoreView, 0, len(monthly))
	for _, m := range monthly {
		months = append(months, MonthlyScoreView{
			AthleteID:  m.AthleteID,
			FirstName:  m.FirstName,
			AvatarURL:  m.AvatarURL,
			Year:       m.Year,
			Month:      int(m.Month),
			Kilometers: m.Kilometers,
			Points:     m.Points,
		})
	}
	annual := make([]AnnualStandingView, 0, len(standings))
	for i, s := range standings {
		annual = append(annual, AnnualStandingView{
			Rank:        i + 1,
			AthleteID:   s.AthleteID,
			FirstName:   s.FirstName,
			AvatarURL:   s.AvatarURL,
			TotalPoints: s.TotalPoints,
		})
	}
	writeJSON(w, http.StatusOK, RegularityResponse{
		GroupID:   groupID,
		Year:      year,
		Monthly:   months,
		Standings: annual,
	})
}

func (h *Handler) sunday(w http.ResponseWriter, r *http.Request, groupID string, year int, activities []domain.GroupActivity) {
	opts := scoring.SundayOptions{}
	if raw := r.URL.Query().Get("min_distance_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "min_distance_km must be a non-negative number")
			return
		}
		opts.MinDistanceKm = parsed
	}

	standings := scoring.SundayMorningLeaderboard(activities, opts)
	points := scoring.SundayPointsPool(activities, opts)

	rows := make([]SundayRow, 0, len(standings))
	for i, s := range standings {
		rows = append(rows, SundayRow{
			Rank:       i + 1,
			AthleteID:  s.AthleteID,
			FirstName:  s.FirstName,
			AvatarURL:  s.AvatarURL,
			Rides:      s.Rides,
			Kilometers: s.Kilometers,
		})
	}
	pointRows := make([]SundayPointsRow, 0, len(points))
	for _, p := range points {
		pointRows = append(pointRows, SundayPointsRow{
			AthleteID: p.AthleteID,
			FirstName: p.FirstName,
			AvatarURL: p.AvatarURL,
			Sundays:   p.Sundays,
			Points:    p.Points,
		})
	}
	writeJSON(w, http.StatusOK, SundayResponse{
		GroupID:   groupID,
		Year:      year,
		Standings: rows,
		Points:    pointRows,
	})
}

func (h *Handler) groupYears(w http.ResponseWriter, r *http.Request, groupID string) {
	years, err := h.store.ListYearsForGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, YearsResponse{GroupID: groupID, Years: years})
}

// athleteStats serves /v1/athletes/{id}/stats: Eddington progress, yearly
// aggregates, and personal records computed over the athlete's full history.
func (h *Handler) athleteStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireScope(w, r, auth.ScopeLeaderboardRead) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/athletes/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] != "stats" {
		writeError(w, http.StatusNotFound, "not_found", "unknown athlete view")
		return
	}
	athleteID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "athlete id must be numeric")
		return
	}

	profile, err := h.store.GetProfile(r.Context(), athleteID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "athlete not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	activities, err := h.store.ListByAthlete(r.Context(), athleteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	distances := make([]float64, 0, len(activities))
	for _, a := range activities {
		distances = append(distances, a.DistanceKm)
	}
	progress := scoring.Progress(distances)

	years := make([]YearSummaryView, 0)
	for _, y := range scoring.YearlySummary(activities) {
		years = append(years, YearSummaryView{
			Year:          y.Year,
			Rides:         y.Rides,
			Kilometers:    y.Kilometers,
			ElevationGain: y.ElevationGain,
		})
	}

	writeJSON(w, http.StatusOK, AthleteStatsResponse{
		AthleteID: athleteID,
		FirstName: profile.FirstName,
		AvatarURL: profile.AvatarURL,
		Eddington: EddingtonView{
			Number:       progress.Number,
			NextTarget:   progress.NextTarget,
			RidesMissing: progress.RidesMissing,
		},
		Years:           years,
		LongestRides:    toActivityViews(scoring.TopByDistance(activities, 5)),
		BiggestClimbs:   toActivityViews(scoring.TopByElevation(activities, 5)),
		TotalActivities: len(activities),
	})
}

// triggerSync starts a batch run. At most one run is active at a time; a
// conflicting trigger reports the active run instead of starting another.
func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireScope(w, r, auth.ScopeSyncAdmin) {
		return
	}

	opts := h.runner.DefaultOptions()
	if r.Body != nil && r.ContentLength != 0 {
		var body struct {
			RecentOnly *bool `json:"recent_only"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
			return
		}
		if body.RecentOnly != nil {
			opts.RecentOnly = *body.RecentOnly
		}
	}

	run, err := h.runner.Trigger(h.runCtx, opts)
	if err != nil {
		if errors.Is(err, syncengine.ErrRunInProgress) {
			writeError(w, http.StatusConflict, "run_in_progress", "a sync run is already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, SyncRunView{
		RunID:     run.ID,
		Status:    "running",
		StartedAt: run.StartedAt,
	})
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireScope(w, r, auth.ScopeSyncAdmin) {
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/v1/admin/sync/")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing run id")
		return
	}

	run, err := h.runner.Get(runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "sync run not found")
		return
	}

	view := SyncRunView{
		RunID:     run.ID,
		Status:    "running",
		StartedAt: run.StartedAt,
	}
	if run.Finished() {
		report, runErr := run.Result()
		view.Status = "completed"
		if runErr != nil {
			view.Status = "failed"
			view.Error = runErr.Error()
		}
		view.FinishedAt = &report.FinishedAt
		view.Accounts = len(report.Accounts)
		view.Succeeded = report.Succeeded()
		view.Failed = report.Failed()
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) yearParam(r *http.Request) int {
	if raw := r.URL.Query().Get("year"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return h.now().Year()
}

func requireScope(w http.ResponseWriter, r *http.Request, scope string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return false
	}
	return true
}

func decodeJSON(r *http.Request, out interface{}) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(out)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// TotalsRow is one ranked entry in the plain leaderboard.
type TotalsRow struct {
	Rank          int     `json:"rank"`
	AthleteID     int64   `json:"athlete_id"`
	FirstName     string  `json:"firstname"`
	AvatarURL     string  `json:"avatar_url,omitempty"`
	Rides         int     `json:"rides"`
	Kilometers    float64 `json:"kilometers"`
	ElevationGain float64 `json:"elevation_gain"`
	MovingTimeSec int     `json:"moving_time_sec"`
	AvgKmPerRide  float64 `json:"avg_km_per_ride"`
	AvgSpeedKmh   float64 `json:"avg_speed_kmh"`
}

// LeaderboardResponse packages the plain leaderboard for one group season.
type LeaderboardResponse struct {
	GroupID string      `json:"group_id"`
	Year    int         `json:"year"`
	Metric  string      `json:"metric"`
	Rows    []TotalsRow `json:"rows"`
}

// MonthlyScoreView is one athlete's result for one month of the regularity
// challenge.
type MonthlyScoreView struct {
	AthleteID  int64   `json:"athlete_id"`
	FirstName  string  `json:"firstname"`
	AvatarURL  string  `json:"avatar_url,omitempty"`
	Year       int     `json:"year"`
	Month      int     `json:"month"`
	Kilometers float64 `json:"kilometers"`
	Points     int     `json:"points"`
}

// AnnualStandingView is an athlete's cumulative regularity standing.
type AnnualStandingView struct {
	Rank        int    `json:"rank"`
	AthleteID   int64  `json:"athlete_id"`
	FirstName   string `json:"firstname"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	TotalPoints int    `json:"total_points"`
}

// RegularityResponse packages the regularity challenge for one group season.
type RegularityResponse struct {
	GroupID   string               `json:"group_id"`
	Year      int                  `json:"year"`
	Monthly   []MonthlyScoreView   `json:"monthly"`
	Standings []AnnualStandingView `json:"standings"`
}

// SundayRow is one ranked entry in the Sunday-morning leaderboard.
type SundayRow struct {
	Rank       int     `json:"rank"`
	AthleteID  int64   `json:"athlete_id"`
	FirstName  string  `json:"firstname"`
	AvatarURL  string  `json:"avatar_url,omitempty"`
	Rides      int     `json:"rides"`
	Kilometers float64 `json:"kilometers"`
}

// SundayPointsRow is one athlete's share of the per-Sunday point pools.
type SundayPointsRow struct {
	AthleteID int64   `json:"athlete_id"`
	FirstName string  `json:"firstname"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Sundays   int     `json:"sundays"`
	Points    float64 `json:"points"`
}

// SundayResponse packages the Sunday-morning views for one group season.
type SundayResponse struct {
	GroupID   string            `json:"group_id"`
	Year      int               `json:"year"`
	Standings []SundayRow       `json:"standings"`
	Points    []SundayPointsRow `json:"points"`
}

// YearsResponse lists the seasons a group has data for.
type YearsResponse struct {
	GroupID string `json:"group_id"`
	Years   []int  `json:"years"`
}

// EddingtonView describes an athlete's Eddington number and the next level.
type EddingtonView struct {
	Number       int `json:"number"`
	NextTarget   int `json:"next_target"`
	RidesMissing int `json:"rides_missing"`
}

// YearSummaryView aggregates one athlete's year.
type YearSummaryView struct {
	Year          int     `json:"year"`
	Rides         int     `json:"rides"`
	Kilometers    float64 `json:"kilometers"`
	ElevationGain float64 `json:"elevation_gain"`
}

// ActivityView exposes one activity in stats payloads.
type ActivityView struct {
	ActivityID    int64     `json:"activity_id"`
	Name          string    `json:"name"`
	Kilometers    float64   `json:"kilometers"`
	ElevationGain float64   `json:"elevation_gain"`
	MovingTimeSec int       `json:"moving_time_sec"`
	Type          string    `json:"type"`
	StartDate     time.Time `json:"start_date"`
}

// AthleteStatsResponse is the full stats payload for one athlete.
type AthleteStatsResponse struct {
	AthleteID       int64             `json:"athlete_id"`
	FirstName       string            `json:"firstname"`
	AvatarURL       string            `json:"avatar_url,omitempty"`
	Eddington       EddingtonView     `json:"eddington"`
	Years           []YearSummaryView `json:"years"`
	LongestRides    []ActivityView    `json:"longest_rides"`
	BiggestClimbs   []ActivityView    `json:"biggest_climbs"`
	TotalActivities int               `json:"total_activities"`
}

// SyncRunView reports the state of one batch run.
type SyncRunView struct {
	RunID      string     `json:"run_id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Accounts   int        `json:"accounts,omitempty"`
	Succeeded  int        `json:"succeeded,omitempty"`
	Failed     int        `json:"failed,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func toActivityViews(activities []domain.Activity) []ActivityView {
	out := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		out = append(out, ActivityView{
			ActivityID:    a.ID,
			Name:          a.Name,
			Kilometers:    a.DistanceKm,
			ElevationGain: a.ElevationGain,
			MovingTimeSec: a.MovingTimeSec,
			Type:          a.Type,
			StartDate:     a.StartDate,
		})
	}
	return out
}
