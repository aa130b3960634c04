package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/auth"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/knowledge"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/sequencing"
)

func newTestHandler(t *testing.T) (*Handler, *knowledge.InMemoryRepository) {
	t.Helper()

	catalog, err := knowledge.DefaultCatalog()
	require.NoError(t, err)
	repo := knowledge.NewInMemoryRepository(catalog)

	clock := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)
	service := sequencing.NewService(sequencing.Dependencies{
		Movements:   repo,
		History:     repo,
		Transitions: repo,
		Profiles:    repo,
		Quality:     repo,
	},
		sequencing.WithLogger(log.New(io.Discard, "", 0)),
		sequencing.WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
	)
	return NewHandler(service, repo), repo
}

func withClaims(req *http.Request, scopes ...string) *http.Request {
	claims := &auth.Claims{
		Subject:   "user-1",
		Scopes:    map[string]struct{}{},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	for _, scope := range scopes {
		claims.Scopes[scope] = struct{}{}
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func postSequence(t *testing.T, h *Handler, body string, scopes ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/sequences", bytes.NewBufferString(body))
	req = withClaims(req, scopes...)
	rr := httptest.NewRecorder()
	h.sequences(rr, req)
	return rr
}

func TestGenerateSequenceSuccess(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := postSequence(t, h, `{"target_duration_minutes":45,"difficulty_level":"intermediate","focus_areas":["core"],"seed":11}`, auth.ScopeSequencesWrite)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp sequencing.GeneratedSequence
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	require.Equal(t, "user-1", resp.UserID)
	require.Equal(t, domain.Intermediate, resp.Difficulty)
	require.Equal(t, uint64(11), resp.Seed)
	require.NotEmpty(t, resp.Items)
	require.Equal(t, domain.KindMovement, resp.Items[0].Kind)
	require.LessOrEqual(t, len(resp.Movements()), resp.Budget.MaxMovements)
}

func TestGenerateSequenceIsReproducibleWithSeed(t *testing.T) {
	body := `{"target_duration_minutes":30,"difficulty_level":"beginner","user_id":"anon-seed","seed":99}`

	ids := func(h *Handler) []string {
		rr := postSequence(t, h, body, auth.ScopeSequencesWrite, auth.ScopeSequencesAdmin)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var resp sequencing.GeneratedSequence
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		out := make([]string, 0)
		for _, m := range resp.Movements() {
			out = append(out, m.ID)
		}
		return out
	}

	first, _ := newTestHandler(t)
	second, _ := newTestHandler(t)
	want := ids(first)
	require.NotEmpty(t, want)
	require.Equal(t, want, ids(second))
}

func TestGenerateSequenceRejectsBadRequests(t *testing.T) {
	h, _ := newTestHandler(t)

	cases := map[string]struct {
		body   string
		status int
		code   string
	}{
		"malformed":       {body: `{`, status: http.StatusBadRequest, code: "invalid_request"},
		"unknown field":   {body: `{"target_duration_minutes":30,"difficulty_level":"beginner","colour":"blue"}`, status: http.StatusBadRequest, code: "invalid_request"},
		"missing target":  {body: `{"difficulty_level":"beginner"}`, status: http.StatusBadRequest, code: "validation_failed"},
		"missing level":   {body: `{"target_duration_minutes":30}`, status: http.StatusBadRequest, code: "validation_failed"},
		"short target":    {body: `{"target_duration_minutes":5,"difficulty_level":"beginner"}`, status: http.StatusBadRequest, code: "validation_failed"},
		"long target":     {body: `{"target_duration_minutes":121,"difficulty_level":"beginner"}`, status: http.StatusBadRequest, code: "validation_failed"},
		"unknown level":   {body: `{"target_duration_minutes":30,"difficulty_level":"expert"}`, status: http.StatusBadRequest, code: "validation_failed"},
		"bad override":    {body: `{"target_duration_minutes":30,"difficulty_level":"beginner","duration_overrides":{"saw":0}}`, status: http.StatusBadRequest, code: "validation_failed"},
		"everything gone": {body: `{"target_duration_minutes":30,"difficulty_level":"beginner","excluded_movements":` + allBeginnerIDs(t) + `}`, status: http.StatusUnprocessableEntity, code: "no_movements_available"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := postSequence(t, h, tc.body, auth.ScopeSequencesWrite)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())

			var payload map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
			require.Equal(t, tc.code, payload["type"])
		})
	}
}

func allBeginnerIDs(t *testing.T) string {
	t.Helper()
	catalog, err := knowledge.DefaultCatalog()
	require.NoError(t, err)
	ids := make([]string, 0)
	for _, m := range catalog.Movements {
		if m.Difficulty == domain.Beginner {
			ids = append(ids, m.ID)
		}
	}
	raw, err := json.Marshal(ids)
	require.NoError(t, err)
	return string(raw)
}

func TestGenerateSequenceRequiresWriteScope(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/sequences", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()
	h.sequences(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = postSequence(t, h, `{"target_duration_minutes":30,"difficulty_level":"beginner"}`, auth.ScopeSequencesRead)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

type failingGenerator struct {
	err error
}

func (g failingGenerator) GenerateSequence(context.Context, sequencing.GenerateRequest) (*sequencing.GeneratedSequence, error) {
	return nil, g.err
}

func TestGenerateSequenceMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{err: fmt.Errorf("%w: overhead", domain.ErrInsufficientDuration), status: http.StatusUnprocessableEntity, code: "insufficient_duration"},
		{err: fmt.Errorf("%w: empty", domain.ErrNoMovementsAvailable), status: http.StatusUnprocessableEntity, code: "no_movements_available"},
		{err: errors.New("boom"), status: http.StatusInternalServerError, code: "server_error"},
	}
	for _, tc := range cases {
		h := NewHandler(failingGenerator{err: tc.err}, nil)
		h.logger = log.New(io.Discard, "", 0)
		rr := postSequence(t, h, `{"target_duration_minutes":30,"difficulty_level":"beginner"}`, auth.ScopeSequencesWrite)
		require.Equal(t, tc.status, rr.Code)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
		require.Equal(t, tc.code, payload["type"])
	}
}

func TestListSequencesPaginates(t *testing.T) {
	h, _ := newTestHandler(t)

	created := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		rr := postSequence(t, h, `{"target_duration_minutes":30,"difficulty_level":"beginner"}`, auth.ScopeSequencesWrite)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var resp sequencing.GeneratedSequence
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		created = append(created, resp.ID)
	}

	list := func(query string) ListSequencesResponse {
		req := withClaims(httptest.NewRequest(http.MethodGet, "/v1/sequences"+query, nil), auth.ScopeSequencesRead)
		rr := httptest.NewRecorder()
		h.sequences(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var resp ListSequencesResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		return resp
	}

	page := list("?limit=2")
	require.Len(t, page.Items, 2)
	require.Equal(t, created[2], page.Items[0].SequenceID)
	require.Equal(t, created[1], page.Items[1].SequenceID)
	require.NotEmpty(t, page.NextCursor)

	page = list("?limit=2&cursor=" + page.NextCursor)
	require.Len(t, page.Items, 1)
	require.Equal(t, created[0], page.Items[0].SequenceID)
	require.Empty(t, page.NextCursor)
}

func TestListSequencesScopesToCaller(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := postSequence(t, h, `{"target_duration_minutes":30,"difficulty_level":"beginner","user_id":"someone-else"}`, auth.ScopeSequencesWrite)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = postSequence(t, h, `{"target_duration_minutes":30,"difficulty_level":"beginner","user_id":"someone-else"}`, auth.ScopeSequencesWrite, auth.ScopeSequencesAdmin)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	list := func(query string, scopes ...string) *httptest.ResponseRecorder {
		req := withClaims(httptest.NewRequest(http.MethodGet, "/v1/sequences"+query, nil), scopes...)
		rr := httptest.NewRecorder()
		h.sequences(rr, req)
		return rr
	}

	rr = list("?user_id=someone-else", auth.ScopeSequencesRead)
	require.Equal(t, http.StatusForbidden, rr.Code)
	var problem map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Equal(t, "forbidden", problem["type"])

	rr = list("?user_id=user-1", auth.ScopeSequencesRead)
	require.Equal(t, http.StatusOK, rr.Code)
	var own ListSequencesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &own))
	require.Empty(t, own.Items)

	rr = list("?user_id=someone-else", auth.ScopeSequencesRead, auth.ScopeSequencesAdmin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var other ListSequencesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &other))
	require.Len(t, other.Items, 1)
}

func TestListSequencesRejectsBadCursor(t *testing.T) {
	h, _ := newTestHandler(t)

	req := withClaims(httptest.NewRequest(http.MethodGet, "/v1/sequences?cursor=***", nil), auth.ScopeSequencesRead)
	rr := httptest.NewRecorder()
	h.sequences(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoutes(t *testing.T) {
	h, _ := newTestHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, withClaims(httptest.NewRequest(http.MethodDelete, "/v1/sequences", nil), auth.ScopeSequencesWrite))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
