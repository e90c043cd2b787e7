// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/AleutianAI/FlightRisk/services/classifier"
	"github.com/AleutianAI/FlightRisk/services/riskservice/auth"
	"github.com/AleutianAI/FlightRisk/services/riskservice/datatypes"
	"github.com/AleutianAI/FlightRisk/services/riskservice/middleware"
	"github.com/AleutianAI/FlightRisk/services/riskservice/observability"
	"github.com/AleutianAI/FlightRisk/services/risk"
	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/AleutianAI/FlightRisk/services/store/memstore"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePredictor struct {
	result  risk.Result
	err     error
	lastQry risk.Query
}

func (f *fakePredictor) Predict(_ context.Context, q risk.Query) (risk.Result, error) {
	f.lastQry = q
	return f.result, f.err
}

type recordingAudit struct {
	events []extensions.AuditEvent
}

func (r *recordingAudit) Log(_ context.Context, e extensions.AuditEvent) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) Flush(context.Context) error { return nil }

func (r *recordingAudit) types() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

func newEngine(t *testing.T) *classifier.Engine {
	t.Helper()
	e, err := classifier.NewEngine()
	require.NoError(t, err)
	return e
}

func newManager(st *memstore.Store) *auth.Manager {
	return auth.NewManager(st, st, auth.WithBcryptCost(bcrypt.MinCost))
}

// as injects a fixed identity, standing in for AuthMiddleware.
func as(info *extensions.AuthInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		if info != nil {
			middleware.SetAuthInfo(c, info)
		}
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func crew(id string) *extensions.AuthInfo {
	return &extensions.AuthInfo{UserID: id, Email: id + "@example.com", Roles: []extensions.Role{extensions.RoleCrew}}
}

func admin() *extensions.AuthInfo {
	return &extensions.AuthInfo{UserID: "admin-1", Email: "admin@example.com", Roles: []extensions.Role{extensions.RoleAdmin}}
}

// =============================================================================
// Prediction and classification
// =============================================================================

func TestHandlePredictRisk(t *testing.T) {
	t.Run("returns the predictor result", func(t *testing.T) {
		p := &fakePredictor{result: risk.Result{Risk: 0.42, Message: "ok"}}
		reg := prometheus.NewRegistry()
		m := observability.NewMetrics(reg)
		r := gin.New()
		r.POST("/predict_risk", HandlePredictRisk(p, m))

		w := doJSON(t, r, http.MethodPost, "/predict_risk", map[string]string{
			"flight_number": "AA100", "route": "JFK-LAX", "incident_type": "Turbulence",
		})

		require.Equal(t, http.StatusOK, w.Code)
		var got risk.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.InDelta(t, 0.42, got.Risk, 1e-9)
		assert.Equal(t, risk.Query{FlightNumber: "AA100", Route: "JFK-LAX", IncidentType: "Turbulence"}, p.lastQry)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PredictionsTotal.WithLabelValues(string(observability.OutcomeSuccess))))
	})

	t.Run("empty strings are accepted", func(t *testing.T) {
		p := &fakePredictor{result: risk.InsufficientData()}
		r := gin.New()
		r.POST("/predict_risk", HandlePredictRisk(p, nil))

		w := doJSON(t, r, http.MethodPost, "/predict_risk", map[string]string{
			"flight_number": "", "route": "", "incident_type": "",
		})

		require.Equal(t, http.StatusOK, w.Code)
		var got risk.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, risk.InsufficientData(), got)
	})

	t.Run("missing field is 400", func(t *testing.T) {
		r := gin.New()
		r.POST("/predict_risk", HandlePredictRisk(&fakePredictor{}, nil))

		w := doJSON(t, r, http.MethodPost, "/predict_risk", map[string]string{"flight_number": "AA100", "route": "JFK-LAX"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, errorBody(t, w), "required")
	})

	t.Run("malformed json is 400", func(t *testing.T) {
		r := gin.New()
		r.POST("/predict_risk", HandlePredictRisk(&fakePredictor{}, nil))

		w := doJSON(t, r, http.MethodPost, "/predict_risk", "{not json")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("pipeline failure is 500", func(t *testing.T) {
		p := &fakePredictor{err: errors.New("degenerate fit")}
		r := gin.New()
		r.POST("/predict_risk", HandlePredictRisk(p, nil))

		w := doJSON(t, r, http.MethodPost, "/predict_risk", map[string]string{
			"flight_number": "AA100", "route": "JFK-LAX", "incident_type": "Turbulence",
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "risk prediction failed", errorBody(t, w))
	})
}

func TestHandleClassify(t *testing.T) {
	r := gin.New()
	r.POST("/classify", HandleClassify(newEngine(t), nil))

	tests := []struct {
		name string
		text string
		want string
	}{
		{"engine", "Engine fire on climb", classifier.CategoryEngineFailure},
		{"weather", "Heavy storm at arrival", classifier.CategoryWeatherIssue},
		{"no keyword", "Passenger spilled coffee", classifier.CategoryOther},
		{"empty", "", classifier.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/classify", map[string]string{"text": tt.text})
			require.Equal(t, http.StatusOK, w.Code)
			var got datatypes.ClassifyResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got.IncidentType)
		})
	}

	t.Run("response bodies", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/classify", map[string]string{"text": "bird strike,engine fire"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"incidentType":"Engine Failure","keyword":"engine"}`, w.Body.String())

		w = doJSON(t, r, http.MethodPost, "/classify", map[string]string{"text": "routine flight, no issues"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"incidentType":"Other"}`, w.Body.String())
	})

	t.Run("missing text is 400", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/classify", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "text is required", errorBody(t, w))
	})
}

// =============================================================================
// Accounts
// =============================================================================

func accountRouter(st *memstore.Store, mgr *auth.Manager, cfg AccountConfig, audit extensions.AuditLogger) *gin.Engine {
	r := gin.New()
	r.POST("/api/signup", HandleSignup(mgr, cfg, audit))
	r.POST("/api/login", HandleLogin(mgr, cfg, audit))
	authed := r.Group("/api", middleware.AuthMiddleware(mgr))
	authed.POST("/logout", HandleLogout(mgr, cfg))
	authed.GET("/user", HandleCurrentUser(st))
	authed.GET("/users", HandleListUsers(st))
	authed.PUT("/users/:id", HandleUpdateUserRole(mgr, audit))
	return r
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatalf("no %q cookie set", middleware.SessionCookie)
	return nil
}

func withCookie(r http.Handler, method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAccountFlow(t *testing.T) {
	st := memstore.New()
	mgr := newManager(st)
	audit := &recordingAudit{}
	r := accountRouter(st, mgr, AccountConfig{}, audit)

	w := doJSON(t, r, http.MethodPost, "/api/signup", map[string]string{"email": "a@example.com", "password": "pw123456"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"Signup successful"}`, w.Body.String())
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)

	w = doJSON(t, r, http.MethodPost, "/api/signup", map[string]string{"email": "a@example.com", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", errorBody(t, w))

	w = withCookie(r, http.MethodGet, "/api/user", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me datatypes.CurrentUserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "a@example.com", me.Email)
	assert.Equal(t, "crew", me.Role)
	assert.NotEmpty(t, me.ID)

	w = doJSON(t, r, http.MethodPost, "/api/login", map[string]string{"email": "a@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid credentials", errorBody(t, w))

	w = doJSON(t, r, http.MethodPost, "/api/login", map[string]string{"email": "nobody@example.com", "password": "pw123456"})
	assert.Equal(t, "Invalid credentials", errorBody(t, w))

	w = doJSON(t, r, http.MethodPost, "/api/login", map[string]string{"email": "a@example.com", "password": "pw123456"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Login successful"}`, w.Body.String())
	second := sessionCookie(t, w)

	w = withCookie(r, http.MethodPost, "/api/logout", second, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Logout successful"}`, w.Body.String())
	assert.Equal(t, "", sessionCookie(t, w).Value)

	w = withCookie(r, http.MethodGet, "/api/user", second, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or expired session", errorBody(t, w))

	// The first session is unaffected by logging out the second.
	w = withCookie(r, http.MethodGet, "/api/user", cookie, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"user.signup", "user.login", "user.login", "user.login"}, audit.types())
	assert.Equal(t, "failure", audit.events[1].Outcome)
}

func TestHandleSignup_Validation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   AccountConfig
		body  map[string]string
		code  int
		error string
	}{
		{"bad email", AccountConfig{}, map[string]string{"email": "nope", "password": "x"}, http.StatusBadRequest, "a valid email and password are required"},
		{"missing password", AccountConfig{}, map[string]string{"email": "a@example.com"}, http.StatusBadRequest, "a valid email and password are required"},
		{"unknown role", AccountConfig{AllowRoleSelection: true}, map[string]string{"email": "a@example.com", "password": "x", "role": "captain"}, http.StatusBadRequest, ""},
		{"role selection disabled", AccountConfig{}, map[string]string{"email": "a@example.com", "password": "x", "role": "admin"}, http.StatusForbidden, "role selection is disabled; ask an admin"},
		{"role selection enabled", AccountConfig{AllowRoleSelection: true}, map[string]string{"email": "a@example.com", "password": "x", "role": "pilot"}, http.StatusCreated, ""},
		{"explicit crew without selection", AccountConfig{}, map[string]string{"email": "a@example.com", "password": "x", "role": "crew"}, http.StatusCreated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memstore.New()
			r := accountRouter(st, newManager(st), tt.cfg, nil)

			w := doJSON(t, r, http.MethodPost, "/api/signup", tt.body)

			assert.Equal(t, tt.code, w.Code)
			if tt.error != "" {
				assert.Equal(t, tt.error, errorBody(t, w))
			}
		})
	}
}

func TestHandleUpdateUserRole(t *testing.T) {
	st := memstore.New()
	mgr := newManager(st)
	ctx := context.Background()

	user, sess, err := mgr.Signup(ctx, "crew@example.com", "pw", extensions.RoleCrew)
	require.NoError(t, err)

	audit := &recordingAudit{}
	r := gin.New()
	r.PUT("/api/users/:id", as(admin()), HandleUpdateUserRole(mgr, audit))

	w := doJSON(t, r, http.MethodPut, "/api/users/"+user.ID, map[string]string{"role": "pilot"})
	require.Equal(t, http.StatusOK, w.Code)
	var got store.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, extensions.RolePilot, got.Role)
	assert.NotContains(t, w.Body.String(), "password")

	info, err := mgr.Validate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, extensions.RolePilot, info.PrimaryRole())

	require.Len(t, audit.events, 1)
	assert.Equal(t, "admin-1", audit.events[0].UserID)
	assert.Equal(t, user.ID, audit.events[0].ResourceID)

	w = doJSON(t, r, http.MethodPut, "/api/users/missing", map[string]string{"role": "pilot"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", errorBody(t, w))

	w = doJSON(t, r, http.MethodPut, "/api/users/"+user.ID, map[string]string{"role": "captain"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListUsers_OmitsPasswords(t *testing.T) {
	st := memstore.New()
	mgr := newManager(st)
	_, _, err := mgr.Signup(context.Background(), "a@example.com", "secret-pw", extensions.RoleCrew)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/api/users", HandleListUsers(st))
	w := doJSON(t, r, http.MethodGet, "/api/users", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@example.com")
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "$2a$")
}

func TestHandleCurrentUser_DeletedUser(t *testing.T) {
	r := gin.New()
	r.GET("/api/user", as(crew("ghost")), HandleCurrentUser(memstore.New()))

	w := doJSON(t, r, http.MethodGet, "/api/user", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", errorBody(t, w))
}

// =============================================================================
// Incidents
// =============================================================================

func incidentBody(description string) map[string]any {
	return map[string]any{
		"flightNumber": "AA100",
		"dateTime":     "2024-03-01T10:00:00Z",
		"location":     map[string]any{"lat": 40.6413, "lon": -73.7781, "airportCode": "JFK"},
		"description":  description,
		"severity":     "High",
		"incidentType": "Client Supplied",
	}
}

func TestHandleCreateIncident(t *testing.T) {
	st := memstore.New()
	audit := &recordingAudit{}
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	r := gin.New()
	r.POST("/api/incidents", as(crew("u1")), HandleCreateIncident(st, newEngine(t), m, audit))

	w := doJSON(t, r, http.MethodPost, "/api/incidents", incidentBody("Severe turbulence during descent"))

	require.Equal(t, http.StatusCreated, w.Code)
	var inc store.Incident
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inc))
	assert.NotEmpty(t, inc.ID)
	assert.Equal(t, classifier.CategoryTurbulence, inc.IncidentType)
	assert.Equal(t, "u1", inc.CreatedBy)
	assert.Equal(t, "u1@example.com", inc.CreatedByEmail)
	assert.Equal(t, store.ActionPending, inc.ActionStatus)
	assert.Equal(t, "JFK", inc.Location.AirportCode)
	assert.Equal(t, []string{"incident.create"}, audit.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassificationsTotal.WithLabelValues(classifier.CategoryTurbulence)))

	t.Run("invalid severity", func(t *testing.T) {
		body := incidentBody("x")
		body["severity"] = "Catastrophic"
		w := doJSON(t, r, http.MethodPost, "/api/incidents", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing airport code", func(t *testing.T) {
		body := incidentBody("x")
		body["location"] = map[string]any{"lat": 1.0, "lon": 2.0}
		w := doJSON(t, r, http.MethodPost, "/api/incidents", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		r := gin.New()
		r.POST("/api/incidents", HandleCreateIncident(st, newEngine(t), nil, nil))
		w := doJSON(t, r, http.MethodPost, "/api/incidents", incidentBody("x"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func seedIncidents(t *testing.T, st *memstore.Store) (store.Incident, store.Incident) {
	t.Helper()
	ctx := context.Background()
	a, err := st.CreateIncident(ctx, store.Incident{FlightNumber: "AA100", CreatedBy: "u1", CreatedByEmail: "u1@example.com"})
	require.NoError(t, err)
	b, err := st.CreateIncident(ctx, store.Incident{FlightNumber: "BA200", CreatedBy: "u2"})
	require.NoError(t, err)
	return a, b
}

func TestHandleListIncidents_ScopesCrew(t *testing.T) {
	st := memstore.New()
	seedIncidents(t, st)

	tests := []struct {
		name string
		info *extensions.AuthInfo
		want []string
	}{
		{"crew sees own", crew("u1"), []string{"AA100"}},
		{"crew with none", crew("u3"), []string{}},
		{"admin sees all", admin(), []string{"AA100", "BA200"}},
		{"auditor sees all", &extensions.AuthInfo{UserID: "x", Roles: []extensions.Role{extensions.RoleAuditor}}, []string{"AA100", "BA200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/api/incidents", as(tt.info), HandleListIncidents(st))

			w := doJSON(t, r, http.MethodGet, "/api/incidents", nil)

			require.Equal(t, http.StatusOK, w.Code)
			var got []store.Incident
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			flights := make([]string, 0, len(got))
			for _, inc := range got {
				flights = append(flights, inc.FlightNumber)
			}
			assert.ElementsMatch(t, tt.want, flights)
		})
	}
}

func TestIncidentWorkflow(t *testing.T) {
	st := memstore.New()
	a, _ := seedIncidents(t, st)
	audit := &recordingAudit{}

	r := gin.New()
	g := r.Group("/api/incidents", as(admin()))
	g.POST("/:id/comments", HandleAddComment(st, audit))
	g.PUT("/:id/suggest-action", HandleSuggestAction(st, audit))
	g.PUT("/:id/assign-action", HandleAssignAction(st, audit))
	g.PUT("/:id/action-status", HandleSetActionStatus(st, audit))

	w := doJSON(t, r, http.MethodPost, "/api/incidents/"+a.ID+"/comments", map[string]string{"text": "checked"})
	require.Equal(t, http.StatusOK, w.Code)
	var inc store.Incident
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inc))
	require.Len(t, inc.Comments, 1)
	assert.Equal(t, "checked", inc.Comments[0].Text)
	assert.Equal(t, "admin-1", inc.Comments[0].UserID)
	assert.Equal(t, "admin@example.com", inc.Comments[0].UserEmail)

	w = doJSON(t, r, http.MethodPut, "/api/incidents/"+a.ID+"/suggest-action", map[string]string{"action": "Inspect engine"})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPut, "/api/incidents/"+a.ID+"/assign-action", map[string]string{"action": "Replace sensor"})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPut, "/api/incidents/"+a.ID+"/action-status", map[string]string{"status": "In Progress"})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inc))
	assert.Equal(t, "Inspect engine", inc.SuggestedAction)
	assert.Equal(t, "Replace sensor", inc.AssignedAction)
	assert.Equal(t, store.ActionInProgress, inc.ActionStatus)

	// An empty action clears the field.
	w = doJSON(t, r, http.MethodPut, "/api/incidents/"+a.ID+"/suggest-action", map[string]string{"action": ""})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inc))
	assert.Empty(t, inc.SuggestedAction)

	assert.Equal(t, []string{"incident.comment", "incident.update", "incident.update", "incident.update", "incident.update"}, audit.types())

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name   string
			method string
			path   string
			body   any
			code   int
			error  string
		}{
			{"comment on missing incident", http.MethodPost, "/api/incidents/nope/comments", map[string]string{"text": "x"}, http.StatusNotFound, "Incident not found"},
			{"empty comment", http.MethodPost, "/api/incidents/" + a.ID + "/comments", map[string]string{"text": ""}, http.StatusBadRequest, "text is required"},
			{"action on missing incident", http.MethodPut, "/api/incidents/nope/assign-action", map[string]string{"action": "x"}, http.StatusNotFound, "Incident not found"},
			{"missing action", http.MethodPut, "/api/incidents/" + a.ID + "/assign-action", map[string]string{}, http.StatusBadRequest, "action is required"},
			{"bad status", http.MethodPut, "/api/incidents/" + a.ID + "/action-status", map[string]string{"status": "Done"}, http.StatusBadRequest, ""},
			{"status on missing incident", http.MethodPut, "/api/incidents/nope/action-status", map[string]string{"status": "Completed"}, http.StatusNotFound, "Incident not found"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := doJSON(t, r, tt.method, tt.path, tt.body)
				assert.Equal(t, tt.code, w.Code)
				if tt.error != "" {
					assert.Equal(t, tt.error, errorBody(t, w))
				}
			})
		}
	})
}

// =============================================================================
// Export
// =============================================================================

func TestHandleExportIncidents(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	_, err := st.CreateIncident(ctx, store.Incident{
		FlightNumber:    "AA100",
		DateTime:        time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		Location:        store.Location{Lat: 40.5, Lon: -73.25, AirportCode: "JFK"},
		IncidentType:    classifier.CategoryTurbulence,
		Severity:        "High",
		Description:     "Severe turbulence",
		CreatedByEmail:  "u1@example.com",
		SuggestedAction: "Inspect",
	})
	require.NoError(t, err)
	_, err = st.CreateIncident(ctx, store.Incident{FlightNumber: "BA200"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/api/incidents/export", HandleExportIncidents(st))
	w := doJSON(t, r, http.MethodGet, "/api/incidents/export", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, XLSXContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=incidents.xlsx", w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"Flight Number", "Date", "Location", "Type", "Severity", "Description",
		"Created By", "Suggested Action", "Assigned Action", "Action Status",
	}, rows[0])

	byFlight := map[string][]string{}
	for _, row := range rows[1:] {
		byFlight[row[0]] = row
	}
	aa := byFlight["AA100"]
	require.NotNil(t, aa)
	assert.Equal(t, "2024-03-01 10:30:00", aa[1])
	assert.Equal(t, "JFK (40.5, -73.25)", aa[2])
	assert.Equal(t, classifier.CategoryTurbulence, aa[3])
	assert.Equal(t, "u1@example.com", aa[6])
	assert.Equal(t, "Inspect", aa[7])
	assert.Equal(t, "Pending", aa[9])

	ba := byFlight["BA200"]
	require.NotNil(t, ba)
	assert.Equal(t, "Unknown", ba[6])

	width, err := f.GetColWidth(ExportSheet, "F")
	require.NoError(t, err)
	assert.Equal(t, 30.0, width)
}

func TestBuildIncidentWorkbook_Empty(t *testing.T) {
	f, err := BuildIncidentWorkbook(nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{ExportSheet}, f.GetSheetList())
}

// =============================================================================
// Health
// =============================================================================

func TestHandleHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all healthy", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", HandleHealth(map[string]HealthCheck{"mongo": ok}))
		w := doJSON(t, r, http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got datatypes.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "ok", got.Status)
		assert.Equal(t, "ok", got.Checks["mongo"])
	})

	t.Run("one failing", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", HandleHealth(map[string]HealthCheck{"mongo": ok, "influx": down}))
		w := doJSON(t, r, http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var got datatypes.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "degraded", got.Status)
		assert.Equal(t, "connection refused", got.Checks["influx"])
	})

	t.Run("no checks", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", HandleHealth(nil))
		w := doJSON(t, r, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
