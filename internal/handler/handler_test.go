package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MediRoute/internal/dispatch"
	"MediRoute/internal/models"
	"MediRoute/pkg/auth"
	"MediRoute/pkg/config"
	"MediRoute/pkg/export"
	"MediRoute/pkg/metrics"
	"MediRoute/pkg/middleware"
	"MediRoute/pkg/search"
	"MediRoute/pkg/sse"
	"MediRoute/pkg/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type testServer struct {
	engine  *gin.Engine
	db      *gorm.DB
	tokens  *auth.TokenIssuer
	metrics *metrics.Metrics
	dir     *search.Directory
}

func newTestServer(t *testing.T, rate string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := util.InitDatabase(util.DriverSQLite, "", gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	cfg := &config.Config{
		APIPrefix:   "/api",
		AuthPrefix:  "/auth",
		AdminPrefix: "/admin",
		MetricsPath: "/metrics",
	}
	m := metrics.NewMetrics()
	tokens := auth.NewTokenIssuer("handler-test", time.Hour)
	locator := dispatch.NewLocator(dispatch.NewStoreHospitalSource(db), m)
	svc := dispatch.NewService(db, locator, dispatch.Config{Transactional: true, Recorder: m, Publisher: sse.NewHub(time.Minute)})

	dir, err := search.New(search.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })

	engine := gin.New()
	engine.Use(sessions.Sessions("mediroute", cookie.NewStore([]byte("session-secret"))))
	NewHandlers(db, Options{
		Config:      cfg,
		Dispatch:    svc,
		Hub:         sse.NewHub(time.Minute),
		Metrics:     m,
		Tokens:      tokens,
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{Rate: rate, Identifier: "ip"}, nil),
		Directory:   dir,
	}).Register(engine)

	return &testServer{engine: engine, db: db, tokens: tokens, metrics: m, dir: dir}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) hospital(t *testing.T, name string, lat, lng float64, approve bool) (*models.Account, string) {
	t.Helper()
	acc := &models.Account{
		Username:    name,
		Email:       name + "@example.com",
		Role:        models.RoleHospital,
		DisplayName: name + " Hospital",
		Latitude:    &lat,
		Longitude:   &lng,
	}
	require.NoError(t, models.CreateAccount(s.db, acc, "pw123456"))
	if approve {
		var err error
		acc, err = models.ApproveHospital(s.db, acc.ID)
		require.NoError(t, err)
	}
	tok, _, err := s.tokens.Issue(acc.ID, string(acc.Role))
	require.NoError(t, err)
	return acc, tok
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}

func TestEmergencyDispatchEndpoint(t *testing.T) {
	s := newTestServer(t, "100-M")

	coord := gin.H{"lat": 0.1, "lng": 0.1}
	w, env := s.do(t, http.MethodPost, "/api/dispatch/sos", gin.H{"requesterName": "Ann", "reason": "fall", "coordinate": coord}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "no operational hospital found", env.Msg)

	s.hospital(t, "near", 0, 0, true)
	s.hospital(t, "far", 10, 10, true)

	w, env = s.do(t, http.MethodPost, "/api/dispatch/sos", gin.H{"requesterName": "Ann", "reason": "fall", "criticality": "LOW", "coordinate": coord}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var out dispatch.Assignment
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "near Hospital", out.AssignedHospitalName)
	assert.Equal(t, models.CriticalityHigh, out.Criticality)
	assert.InDelta(t, 15.7, out.DistanceKm, 0.1)

	var stored models.Request
	require.NoError(t, s.db.First(&stored, "id = ?", out.RequestID).Error)
	assert.Equal(t, "Ann", stored.RequesterName)

	// flat form of older clients
	w, _ = s.do(t, http.MethodPost, "/api/dispatch/doctor-connect", gin.H{"patientName": "Ann", "latitude": 0.1, "longitude": 0.1}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/dispatch/doctor-connect", gin.H{"requesterName": "Ann", "coordinate": gin.H{"lat": 0.1}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/dispatch/doctor-connect", gin.H{"patientName": "Ann", "latitude": 0.1}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSOSRetryAfterUnavailable(t *testing.T) {
	s := newTestServer(t, "100-M")
	body := gin.H{"requesterName": "Ann", "coordinate": gin.H{"lat": 1, "lng": 1}}
	key := map[string]string{"Idempotency-Key": "sos-1"}

	w, _ := s.do(t, http.MethodPost, "/api/dispatch/sos", body, key)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	s.hospital(t, "near", 0, 0, true)
	w, _ = s.do(t, http.MethodPost, "/api/dispatch/sos", body, key)
	require.Equal(t, http.StatusCreated, w.Code)

	var n int64
	require.NoError(t, s.db.Model(&models.Request{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	w, _ = s.do(t, http.MethodPost, "/api/dispatch/sos", body, key)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDispatchIdempotencyKey(t *testing.T) {
	s := newTestServer(t, "100-M")
	s.hospital(t, "near", 0, 0, true)
	body := gin.H{"patientName": "Ann", "latitude": 1, "longitude": 1}

	w, _ := s.do(t, http.MethodPost, "/api/dispatch/sos", body, map[string]string{"Idempotency-Key": "k-1"})
	assert.Equal(t, http.StatusCreated, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/dispatch/sos", body, map[string]string{"Idempotency-Key": "k-1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// no key: repeated SOS presses are all accepted
	for i := 0; i < 2; i++ {
		w, _ = s.do(t, http.MethodPost, "/api/dispatch/sos", body, nil)
		assert.Equal(t, http.StatusCreated, w.Code)
	}
}

func TestDispatchRateLimited(t *testing.T) {
	s := newTestServer(t, "2-M")
	s.hospital(t, "near", 0, 0, true)
	body := gin.H{"patientName": "Ann", "latitude": 1, "longitude": 1}

	for i := 0; i < 2; i++ {
		w, _ := s.do(t, http.MethodPost, "/api/dispatch/doctor-connect", body, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w, _ := s.do(t, http.MethodPost, "/api/dispatch/doctor-connect", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestQueueAndResolveEndpoints(t *testing.T) {
	s := newTestServer(t, "100-M")
	hosp, tok := s.hospital(t, "near", 0, 0, true)
	_, otherTok := s.hospital(t, "other", 60, 60, true)

	for _, crit := range []string{"LOW", "HIGH", "MEDIUM"} {
		w, _ := s.do(t, http.MethodPost, "/api/dispatch/doctor-connect",
			gin.H{"patientName": "p-" + crit, "criticality": crit, "latitude": 0, "longitude": 0}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, _ := s.do(t, http.MethodGet, "/api/hospital/queue", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/hospital/queue", nil, bearer(tok))
	require.Equal(t, http.StatusOK, w.Code)
	var queue []models.Request
	require.NoError(t, json.Unmarshal(env.Data, &queue))
	require.Len(t, queue, 3)
	assert.Equal(t, []models.Criticality{"HIGH", "MEDIUM", "LOW"},
		[]models.Criticality{queue[0].Criticality, queue[1].Criticality, queue[2].Criticality})

	w, env = s.do(t, http.MethodGet, "/api/hospital/queue", nil, bearer(otherTok))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	w, _ = s.do(t, http.MethodPost, "/api/hospital/queue/not-a-uuid/resolve", gin.H{"prescriptionText": "x"}, bearer(tok))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	target := queue[0].ID
	w, _ = s.do(t, http.MethodPost, "/api/hospital/queue/"+target+"/resolve", gin.H{"prescriptionText": "x"}, bearer(otherTok))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/hospital/queue/"+target+"/resolve", gin.H{"prescriptionText": "ibuprofen"}, bearer(tok))
	require.Equal(t, http.StatusOK, w.Code)
	var p models.Prescription
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "p-HIGH", p.PatientName)
	assert.Equal(t, "near Hospital", p.HospitalName)
	assert.Equal(t, hosp.ID, p.HospitalID)

	w, _ = s.do(t, http.MethodPost, "/api/hospital/queue/"+target+"/resolve", gin.H{"prescriptionText": "again"}, bearer(tok))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/hospital/prescriptions", nil, bearer(tok))
	require.Equal(t, http.StatusOK, w.Code)
	var issued []models.Prescription
	require.NoError(t, json.Unmarshal(env.Data, &issued))
	assert.Len(t, issued, 1)

	w, _ = s.do(t, http.MethodGet, "/api/hospital/prescriptions/export", nil, bearer(tok))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentTypeXLSX, w.Header().Get("Content-Type"))
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Prescriptions")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "p-HIGH", rows[1][1])
	assert.Equal(t, "ibuprofen", rows[1][2])
}

func TestPendingHospitalIsForbidden(t *testing.T) {
	s := newTestServer(t, "100-M")
	_, tok := s.hospital(t, "pending", 0, 0, false)

	w, _ := s.do(t, http.MethodGet, "/api/hospital/queue", nil, bearer(tok))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/hospital/location", gin.H{"latitude": 3, "longitude": 4}, bearer(tok))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminApprovalFlow(t *testing.T) {
	s := newTestServer(t, "100-M")
	_, err := models.EnsureAdmin(s.db, "root@example.com", "admin-pass")
	require.NoError(t, err)

	w, env := s.do(t, http.MethodPost, "/api/auth/register", gin.H{
		"username": "north", "email": "north@example.com", "password": "pw123456",
		"role": "hospital", "displayName": "North General", "latitude": 1.0, "longitude": 2.0,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var hosp models.Account
	require.NoError(t, json.Unmarshal(env.Data, &hosp))
	assert.Equal(t, models.StatusPending, hosp.Status)

	w, env = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"identifier": "root@example.com", "password": "admin-pass"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)

	_, hospTok := s.hospital(t, "other", 5, 5, true)
	w, _ = s.do(t, http.MethodGet, "/api/admin/hospitals/pending", nil, bearer(hospTok))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/admin/hospitals/pending", nil, bearer(login.Token))
	require.Equal(t, http.StatusOK, w.Code)
	var pending []models.Account
	require.NoError(t, json.Unmarshal(env.Data, &pending))
	require.Len(t, pending, 1)

	w, env = s.do(t, http.MethodPost, "/api/admin/hospitals/"+jsonID(hosp.ID)+"/approve", nil, bearer(login.Token))
	require.Equal(t, http.StatusOK, w.Code)
	var approved models.Account
	require.NoError(t, json.Unmarshal(env.Data, &approved))
	assert.Equal(t, models.StatusApproved, approved.Status)
	require.NotNil(t, approved.HospitalCode)

	// the issued code logs the hospital in
	w, _ = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"identifier": *approved.HospitalCode, "password": "pw123456"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"identifier": "north", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestSessionLogin(t *testing.T) {
	s := newTestServer(t, "100-M")
	w, _ := s.do(t, http.MethodPost, "/api/auth/register", gin.H{"username": "ann", "email": "ann@example.com", "password": "pw123456"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"identifier": "ann", "password": "pw123456"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/info", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"ann"`)
}

func TestPatientPrescriptions(t *testing.T) {
	s := newTestServer(t, "100-M")
	patient := &models.Account{Username: "ann", Email: "ann@example.com", Role: models.RolePatient, DisplayName: "Ann Lee"}
	require.NoError(t, models.CreateAccount(s.db, patient, "pw123456"))
	require.NoError(t, models.CreatePrescription(s.db, &models.Prescription{PatientName: "Ann Lee", Text: "rest", HospitalID: 1}))
	require.NoError(t, models.CreatePrescription(s.db, &models.Prescription{PatientName: "Bob", Text: "x", HospitalID: 1}))
	tok, _, err := s.tokens.Issue(patient.ID, string(patient.Role))
	require.NoError(t, err)

	w, env := s.do(t, http.MethodGet, "/api/patient/prescriptions", nil, bearer(tok))
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Prescription
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "rest", list[0].Text)
}

func TestStaffAndAdmissionEndpoints(t *testing.T) {
	s := newTestServer(t, "100-M")
	_, tok := s.hospital(t, "near", 0, 0, true)
	_, otherTok := s.hospital(t, "other", 9, 9, true)

	w, env := s.do(t, http.MethodPost, "/api/hospital/staff", gin.H{"name": "Dr. Rao", "role": "DOCTOR"}, bearer(tok))
	require.Equal(t, http.StatusCreated, w.Code)
	var staff models.Staff
	require.NoError(t, json.Unmarshal(env.Data, &staff))

	w, _ = s.do(t, http.MethodDelete, "/api/hospital/staff/"+jsonID(staff.ID), nil, bearer(otherTok))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/hospital/patients", gin.H{"name": "Cara", "age": 30}, bearer(tok))
	require.Equal(t, http.StatusCreated, w.Code)
	var patient models.Patient
	require.NoError(t, json.Unmarshal(env.Data, &patient))

	w, env = s.do(t, http.MethodPost, "/api/hospital/patients/"+jsonID(patient.ID)+"/prescribe", gin.H{"text": "antibiotics"}, bearer(tok))
	require.Equal(t, http.StatusCreated, w.Code)
	var p models.Prescription
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, dispatch.DefaultStaffName, p.StaffName)
	assert.Equal(t, "Cara", p.PatientName)

	w, _ = s.do(t, http.MethodPost, "/api/hospital/patients/"+jsonID(patient.ID)+"/discharge", nil, bearer(tok))
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/hospital/patients/abc/discharge", nil, bearer(tok))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, "100-M")
	s.hospital(t, "near", 0, 0, true)
	w, _ := s.do(t, http.MethodPost, "/api/dispatch/sos", gin.H{"latitude": 1, "longitude": 1}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/system/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w, _ = s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `mediroute_dispatch_total{criticality="HIGH",type="SOS"} 1`)
}

func TestSearchHospitals(t *testing.T) {
	s := newTestServer(t, "100-M")
	require.NoError(t, s.dir.IndexAll(context.Background(), []search.Hospital{
		{ID: 1, Name: "North General", Code: "HSP-AAA111", Latitude: 0, Longitude: 0},
		{ID: 2, Name: "South General", Code: "HSP-BBB222", Latitude: 1, Longitude: 1},
	}))

	w, env := s.do(t, http.MethodGet, "/api/hospitals/search?q=general&lat=0.9&lng=0.9", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Total     uint64        `json:"total"`
		Hospitals []HospitalHit `json:"hospitals"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out.Hospitals, 2)
	assert.Equal(t, "South General", out.Hospitals[0].Name)
	require.NotNil(t, out.Hospitals[0].DistanceKm)
	assert.Less(t, *out.Hospitals[0].DistanceKm, *out.Hospitals[1].DistanceKm)

	w, _ = s.do(t, http.MethodGet, "/api/hospitals/search?lat=north", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
