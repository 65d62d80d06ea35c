package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/longevaiapp/EVEREST-sub000/config"
	"github.com/longevaiapp/EVEREST-sub000/internal/app"
	billingHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/billing"
	careHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/care"
	"github.com/longevaiapp/EVEREST-sub000/internal/handler/health"
	notificationHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/notification"
	patientHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/patient"
	pharmacyHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/pharmacy"
	"github.com/longevaiapp/EVEREST-sub000/internal/handler/prometheus"
	taskHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/task"
	workflowHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/workflow"
	"github.com/longevaiapp/EVEREST-sub000/internal/middleware"
	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository/memory"
	"github.com/longevaiapp/EVEREST-sub000/internal/router"
	"github.com/longevaiapp/EVEREST-sub000/pkg/auth"
	"github.com/longevaiapp/EVEREST-sub000/pkg/httputil"
	"github.com/longevaiapp/EVEREST-sub000/pkg/logger"
)

const (
	testSecret = "router-test-secret"
	testIssuer = "clinic"
)

type envelope[T any] struct {
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Error   *httputil.Error `json:"error"`
}

func setupRouter(t *testing.T, limit rate.Limit, burst int) *gin.Engine {
	t.Helper()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cfg := &config.Config{}
	a := app.NewWithStore(cfg, logger.Nop(), memory.New(), func() time.Time { return now })

	r := router.NewRouter(
		middleware.NewAuthMiddleware(auth.NewVerifier(testSecret, testIssuer), true),
		a.Metrics,
		health.NewHandler(a.Store),
		prometheus.New(a.Registry).Handler(),
		[]router.Handler{
			patientHandler.NewHandler(a.Engine, a.Patients, a.Tasks),
			workflowHandler.NewHandler(a.Engine),
			taskHandler.NewHandler(a.Tasks),
			notificationHandler.NewHandler(a.Notifications),
			careHandler.NewHandler(a.Care, nil),
			billingHandler.NewHandler(a.Billing),
			pharmacyHandler.NewHandler(a.Pharmacy),
		},
		router.RouterConfig{
			Mode:       gin.TestMode,
			RateLimit:  limit,
			RateBurst:  burst,
			CORSConfig: middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()
	return r.Engine()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, role model.Role) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(middleware.HeaderActorID, "staff-"+string(role))
		req.Header.Set(middleware.HeaderActorRole, string(role))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCheckInAndTriage(t *testing.T) {
	h := setupRouter(t, rate.Inf, 1)

	w := do(t, h, http.MethodPost, "/api/v1/patients", map[string]interface{}{
		"name":    "Luna",
		"species": "dog",
		"reason":  "limping",
		"owner":   map[string]string{"name": "Ana", "email": "ana@example.com"},
	}, model.RoleReception)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.Patient](t, w)
	assert.Equal(t, model.StateArrived, created.Data.State)
	id := created.Data.ID.String()

	w = do(t, h, http.MethodGet, "/api/v1/roles/triage/tasks", nil, model.RoleTriage)
	require.Equal(t, http.StatusOK, w.Code)
	tasks := decode[[]model.Task](t, w)
	require.Len(t, tasks.Data, 1)
	assert.Equal(t, created.Data.ID, tasks.Data[0].PatientID)

	w = do(t, h, http.MethodPost, "/api/v1/patients/"+id+"/triage",
		map[string]interface{}{"priority": "HIGH", "weight": 12.5}, model.RoleTriage)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	triaged := decode[model.Patient](t, w)
	assert.Equal(t, model.StateWaiting, triaged.Data.State)
	assert.Equal(t, model.Priority("HIGH"), triaged.Data.Priority)

	w = do(t, h, http.MethodGet, "/api/v1/roles/triage/tasks", nil, model.RoleTriage)
	assert.Empty(t, decode[[]model.Task](t, w).Data)

	w = do(t, h, http.MethodGet, "/api/v1/roles/doctor/notifications/unread-count", nil, model.RoleDoctor)
	require.Equal(t, http.StatusOK, w.Code)
	count := decode[struct {
		Unread int `json:"unread"`
	}](t, w)
	assert.Equal(t, 1, count.Data.Unread)
}

func TestIllegalTransitionIsConflict(t *testing.T) {
	h := setupRouter(t, rate.Inf, 1)

	w := do(t, h, http.MethodPost, "/api/v1/patients",
		map[string]string{"name": "Milo", "species": "cat"}, model.RoleReception)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[model.Patient](t, w).Data.ID.String()

	w = do(t, h, http.MethodPost, "/api/v1/patients/"+id+"/assign",
		map[string]string{"doctor_id": "dr-1"}, model.RoleDoctor)
	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decode[model.Patient](t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "illegal_transition", resp.Error.Type)
}

func TestRequestErrors(t *testing.T) {
	h := setupRouter(t, rate.Inf, 1)

	tests := []struct {
		name   string
		method string
		path   string
		role   model.Role
		want   int
	}{
		{"no credentials", http.MethodGet, "/api/v1/patients", "", http.StatusUnauthorized},
		{"unknown role header", http.MethodGet, "/api/v1/patients", model.Role("JANITOR"), http.StatusUnauthorized},
		{"malformed id", http.MethodGet, "/api/v1/patients/not-a-uuid", model.RoleReception, http.StatusBadRequest},
		{"missing patient", http.MethodGet, "/api/v1/patients/6f1c1d38-6f5c-4a4e-9a43-0d1f2c3b4a5e", model.RoleReception, http.StatusNotFound},
		{"unknown state filter", http.MethodGet, "/api/v1/patients?state=SLEEPING", model.RoleReception, http.StatusBadRequest},
		{"unknown dashboard role", http.MethodGet, "/api/v1/roles/janitor/tasks", model.RoleReception, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, nil, tt.role)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestBearerToken(t *testing.T) {
	h := setupRouter(t, rate.Inf, 1)

	token, err := auth.NewVerifier(testSecret, testIssuer).
		Issue(model.Actor{ID: "dr-7", Name: "Dr. Vega", Role: model.RoleDoctor}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimitPerActor(t *testing.T) {
	h := setupRouter(t, rate.Limit(0), 1)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/patients", nil, model.RoleReception).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/api/v1/patients", nil, model.RoleReception).Code)
	// Another actor has its own bucket.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/patients", nil, model.RoleDoctor).Code)
}

func TestProbesSkipAuth(t *testing.T) {
	h := setupRouter(t, rate.Inf, 1)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/live", nil, "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/ready", nil, "").Code)

	do(t, h, http.MethodGet, "/api/v1/patients", nil, model.RoleReception)
	w := do(t, h, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clinic_http_requests_total")
}
