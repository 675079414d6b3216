package api

import (
	"context"
	"errors"
	"net/http"

	"example.com/clubsync/internal/domain"
	"example.com/clubsync/internal/strava"
)

// CodeExchanger performs the authorization-code grant for first-time
// connections.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (strava.Tokens, *strava.Athlete, error)
}

// ProviderClient covers the provider calls the connect flow makes after the
// code exchange.
type ProviderClient interface {
	FetchRecent(ctx context.Context, accessToken string) ([]strava.ActivityRecord, error)
	FetchStats(ctx context.Context, accessToken string, athleteID int64) (strava.Stats, error)
}

// WithConnectProvider enables the /v1/auth/connect endpoint. Without it the
// route is not registered and members can only be synced by the batch driver.
func WithConnectProvider(exchanger CodeExchanger, provider ProviderClient) HandlerOption {
	return func(h *Handler) {
		h.exchanger = exchanger
		h.provider = provider
	}
}

// ConnectResponse is returned after a successful first connection.
type ConnectResponse struct {
	AthleteID  int64              `json:"athlete_id"`
	FirstName  string             `json:"first_name"`
	Activities int                `json:"activities_synced"`
	Stats      *ProviderStatsView `json:"provider_stats,omitempty"`
}

// ProviderStatsView mirrors the provider's all-time per-sport totals.
type ProviderStatsView struct {
	Rides int `json:"rides"`
	Runs  int `json:"runs"`
	Swims int `json:"swims"`
	Total int `json:"total"`
}

// connect exchanges an authorization code, creates or updates the member's
// profile as an interactive connection, and syncs the newest activities so the
// member sees data immediately. The full history fetch stays with the batch
// driver.
func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing authorization code")
		return
	}

	ctx := r.Context()
	tokens, athlete, err := h.exchanger.ExchangeCode(ctx, body.Code)
	if err != nil {
		if errors.Is(err, domain.ErrAuthRevoked) {
			writeError(w, http.StatusUnauthorized, "code_rejected", "the provider rejected the authorization code")
			return
		}
		writeError(w, http.StatusBadGateway, "provider_error", err.Error())
		return
	}
	if athlete == nil {
		writeError(w, http.StatusBadGateway, "provider_error", "token response carried no athlete summary")
		return
	}

	profile := domain.Profile{
		AthleteID:    athlete.ID,
		FirstName:    athlete.FirstName,
		LastName:     athlete.LastName,
		AvatarURL:    athlete.ProfileMedium,
		RefreshToken: tokens.Refresh,
	}

	records, err := h.provider.FetchRecent(ctx, tokens.Access)
	if err != nil {
		// The connection itself succeeded; store the profile so the next
		// batch run picks the member up.
		if upsertErr := h.store.UpsertProfile(ctx, profile, domain.UpsertProfileOptions{Interactive: true}); upsertErr != nil {
			writeError(w, http.StatusInternalServerError, "server_error", upsertErr.Error())
			return
		}
		writeJSON(w, http.StatusOK, ConnectResponse{AthleteID: athlete.ID, FirstName: athlete.FirstName})
		return
	}

	written, err := h.reconciler.ReconcileAccount(ctx, profile, records, domain.UpsertProfileOptions{Interactive: true})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if written > 0 {
		_ = h.cache.InvalidateAll(ctx)
	}

	resp := ConnectResponse{
		AthleteID:  athlete.ID,
		FirstName:  athlete.FirstName,
		Activities: written,
	}
	if stats, err := h.provider.FetchStats(ctx, tokens.Access, athlete.ID); err == nil {
		resp.Stats = &ProviderStatsView{
			Rides: stats.Rides,
			Runs:  stats.Runs,
			Swims: stats.Swims,
			Total: stats.Total(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
