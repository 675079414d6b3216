package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "clubsync.identity"}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)
	return signed
}

func TestParseValidToken(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub":        "athlete:42",
		"iss":        testConfig.Issuer,
		"athlete_id": float64(42),
		"scopes":     []string{ScopeLeaderboardRead, ScopeSyncAdmin},
		"exp":        time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(signed, testConfig)
	require.NoError(t, err)
	require.Equal(t, "athlete:42", claims.Subject)
	require.Equal(t, int64(42), claims.AthleteID)
	require.True(t, claims.HasScope(ScopeLeaderboardRead))
	require.True(t, claims.HasScope(ScopeSyncAdmin))
	require.False(t, claims.HasScope("other:scope"))
}

func TestParseRejectsBadTokens(t *testing.T) {
	expired := signToken(t, jwt.MapClaims{
		"sub": "athlete:42",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongIssuer := signToken(t, jwt.MapClaims{
		"sub": "athlete:42",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noSubject := signToken(t, jwt.MapClaims{
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"expired":      expired,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(token, testConfig)
			require.Error(t, err)
		})
	}
}

func TestParseScopesFromSpaceSeparatedString(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub":    "svc:admin",
		"iss":    testConfig.Issuer,
		"scopes": ScopeLeaderboardRead + " " + ScopeSyncAdmin,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(signed, testConfig)
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopeSyncAdmin))
}

func TestMiddlewareInjectsClaims(t *testing.T) {
	mw := NewMiddleware(testConfig, DefaultSkipper)

	var seen *Claims
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	signed := signToken(t, jwt.MapClaims{
		"sub": "athlete:42",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/groups/club-a/leaderboard", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "athlete:42", seen.Subject)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	mw := NewMiddleware(testConfig, DefaultSkipper)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/groups/club-a/leaderboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareSkipsHealthz(t *testing.T) {
	mw := NewMiddleware(testConfig, DefaultSkipper)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
