// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/AleutianAI/FlightRisk/services/classifier"
	"github.com/AleutianAI/FlightRisk/services/riskservice/auth"
	"github.com/AleutianAI/FlightRisk/services/riskservice/observability"
	"github.com/AleutianAI/FlightRisk/services/risk"
	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/AleutianAI/FlightRisk/services/store/memstore"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPredictor struct{}

func (stubPredictor) Predict(context.Context, risk.Query) (risk.Result, error) {
	return risk.InsufficientData(), nil
}

type testEnv struct {
	router  *gin.Engine
	store   *memstore.Store
	manager *auth.Manager
	tokens  map[extensions.Role]string
}

func newTestEnv(t *testing.T, limiter *rate.Limiter) *testEnv {
	t.Helper()

	st := memstore.New()
	mgr := auth.NewManager(st, st, auth.WithBcryptCost(bcrypt.MinCost))
	rbac, err := auth.NewRBAC(auth.DefaultPolicy())
	require.NoError(t, err)
	cls, err := classifier.NewEngine()
	require.NoError(t, err)
	reg := prometheus.NewRegistry()

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Predictor:      stubPredictor{},
		Classifier:     cls,
		Accounts:       mgr,
		Users:          st,
		Incidents:      st,
		AuthN:          mgr,
		AuthZ:          rbac,
		Metrics:        observability.NewMetrics(reg),
		Gatherer:       reg,
		PredictLimiter: limiter,
	})

	env := &testEnv{router: router, store: st, manager: mgr, tokens: map[extensions.Role]string{}}
	for _, role := range extensions.AllRoles {
		_, sess, err := mgr.Signup(context.Background(), string(role)+"@example.com", "pw", role)
		require.NoError(t, err)
		env.tokens[role] = sess.Token
	}
	return env
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_RegistersEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	registered := map[string]bool{}
	for _, r := range env.router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"GET /metrics",
		"POST /predict_risk",
		"POST /classify",
		"POST /api/signup",
		"POST /api/login",
		"POST /api/logout",
		"GET /api/user",
		"GET /api/users",
		"PUT /api/users/:id",
		"POST /api/predict_risk",
		"POST /api/incidents",
		"GET /api/incidents",
		"GET /api/incidents/export",
		"POST /api/incidents/:id/comments",
		"PUT /api/incidents/:id/suggest-action",
		"PUT /api/incidents/:id/assign-action",
		"PUT /api/incidents/:id/action-status",
	} {
		assert.True(t, registered[want], "route %s not registered", want)
	}
}

func TestSetupRoutes_PredictionOnly(t *testing.T) {
	cls, err := classifier.NewEngine()
	require.NoError(t, err)
	router := gin.New()
	SetupRoutes(router, Dependencies{Predictor: stubPredictor{}, Classifier: cls})

	for _, r := range router.Routes() {
		assert.NotContains(t, r.Path, "/api/")
	}

	req := httptest.NewRequest(http.MethodPost, "/predict_risk",
		bytes.NewBufferString(`{"flight_number":"AA1","route":"JFK-LAX","incident_type":"Other"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_RequiresSession(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/incidents", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"No token provided"}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/incidents", "not-a-session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired session"}`, w.Body.String())
}

func TestAPI_RoleTable(t *testing.T) {
	env := newTestEnv(t, nil)
	inc, err := env.store.CreateIncident(context.Background(), store.Incident{FlightNumber: "AA100"})
	require.NoError(t, err)
	target, err := env.store.FindUserByEmail(context.Background(), "crew@example.com")
	require.NoError(t, err)

	type call struct {
		method string
		path   string
		body   any
	}
	calls := map[string]call{
		"list users":     {http.MethodGet, "/api/users", nil},
		"update user":    {http.MethodPut, "/api/users/" + target.ID, map[string]string{"role": "crew"}},
		"predict":        {http.MethodPost, "/api/predict_risk", map[string]string{"flight_number": "AA1", "route": "JFK-LAX", "incident_type": "Other"}},
		"comment":        {http.MethodPost, "/api/incidents/" + inc.ID + "/comments", map[string]string{"text": "noted"}},
		"suggest action": {http.MethodPut, "/api/incidents/" + inc.ID + "/suggest-action", map[string]string{"action": "inspect"}},
		"assign action":  {http.MethodPut, "/api/incidents/" + inc.ID + "/assign-action", map[string]string{"action": "inspect"}},
		"action status":  {http.MethodPut, "/api/incidents/" + inc.ID + "/action-status", map[string]string{"status": "Completed"}},
		"export":         {http.MethodGet, "/api/incidents/export", nil},
		"create":         {http.MethodPost, "/api/incidents", map[string]any{"flightNumber": "AA1", "dateTime": "2024-01-01T00:00:00Z", "location": map[string]any{"airportCode": "JFK"}, "description": "storm"}},
		"list":           {http.MethodGet, "/api/incidents", nil},
		"current user":   {http.MethodGet, "/api/user", nil},
	}

	allowed := map[string][]extensions.Role{
		"list users":     {extensions.RoleAdmin},
		"update user":    {extensions.RoleAdmin},
		"predict":        {extensions.RoleAdmin, extensions.RoleAuditor},
		"comment":        {extensions.RoleCrew, extensions.RolePilot},
		"suggest action": {extensions.RolePilot, extensions.RoleAdmin, extensions.RoleAuditor},
		"assign action":  {extensions.RoleAdmin, extensions.RoleAuditor},
		"action status":  {extensions.RoleGroundStaff, extensions.RoleAdmin, extensions.RoleAuditor},
		"export":         {extensions.RoleAdmin, extensions.RoleAuditor},
		"create":         extensions.AllRoles,
		"list":           extensions.AllRoles,
		"current user":   extensions.AllRoles,
	}

	for name, c := range calls {
		for _, role := range extensions.AllRoles {
			t.Run(name+"/"+string(role), func(t *testing.T) {
				w := env.do(c.method, c.path, env.tokens[role], c.body)

				permitted := false
				for _, r := range allowed[name] {
					if r == role {
						permitted = true
					}
				}
				if permitted {
					assert.Less(t, w.Code, 300, "body: %s", w.Body.String())
				} else {
					assert.Equal(t, http.StatusForbidden, w.Code)
					assert.JSONEq(t, `{"error":"Access denied"}`, w.Body.String())
				}
			})
		}
	}
}

func TestAPI_PredictRateLimited(t *testing.T) {
	env := newTestEnv(t, rate.NewLimiter(0, 1))
	body := map[string]string{"flight_number": "AA1", "route": "JFK-LAX", "incident_type": "Other"}

	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/predict_risk", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(http.MethodPost, "/predict_risk", "", body).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/classify", "", map[string]string{"text": "storm"}).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(http.MethodPost, "/classify", "", map[string]string{"text": "engine fire"})

	w := env.do(http.MethodGet, "/metrics", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "flightrisk_classifier_classifications_total")
}
