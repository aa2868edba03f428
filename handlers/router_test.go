package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"silver-jubilee-backend/apperrors"
	"silver-jubilee-backend/models"
	"silver-jubilee-backend/services"
	"silver-jubilee-backend/utils"
)

const (
	testJWTSecret   = "user-secret"
	testAdminSecret = "admin-secret"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), []byte("\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")...)

type stubWorkflow struct {
	submitted  *services.SubmitInput
	submitErr  error
	own        map[string]*models.Registration
	listFilter models.RegistrationFilter
	statusCall struct {
		id, actor, note string
		status          models.RegistrationStatus
	}
	statusErr error
}

func (s *stubWorkflow) Submit(ctx context.Context, in services.SubmitInput) (*models.Registration, error) {
	s.submitted = &in
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &models.Registration{ID: primitive.NewObjectID(), SubjectID: in.Identity.SubjectID, Email: in.Form.Email, Status: models.StatusPending, Amount: 15000}, nil
}

func (s *stubWorkflow) GetOwn(ctx context.Context, subjectID string) (*models.Registration, error) {
	if r, ok := s.own[subjectID]; ok {
		return r, nil
	}
	return nil, apperrors.Clone(apperrors.ErrNotFound, "No registration found")
}

func (s *stubWorkflow) ListAll(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	s.listFilter = filter
	return []models.Registration{}, nil
}

func (s *stubWorkflow) SetStatus(ctx context.Context, id string, status models.RegistrationStatus, actor, note string) (*models.Registration, error) {
	s.statusCall.id, s.statusCall.status, s.statusCall.actor, s.statusCall.note = id, status, actor, note
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return &models.Registration{Status: status, ReviewedBy: actor}, nil
}

func (s *stubWorkflow) Stats(ctx context.Context) (*models.RegistrationStats, error) {
	return &models.RegistrationStats{Total: 2, Pending: 1, Approved: 1}, nil
}

type stubAdminAuth struct {
	clientKey string
	err       error
}

func (s *stubAdminAuth) Login(ctx context.Context, username, password, clientKey string) (*models.AdminLoginResponse, error) {
	s.clientKey = clientKey
	if s.err != nil {
		return nil, s.err
	}
	return &models.AdminLoginResponse{Token: "signed-token", ExpiresIn: 3600}, nil
}

func (s *stubAdminAuth) TokenTTL() time.Duration { return time.Hour }

type stubImages struct {
	uploaded struct {
		data        []byte
		contentType string
		category    string
	}
	deleteErr error
}

func (s *stubImages) List(ctx context.Context, category string) ([]models.Image, error) {
	return []models.Image{{ID: primitive.NewObjectID(), URL: "https://img", Category: models.CategoryHomeMemories}}, nil
}

func (s *stubImages) Upload(ctx context.Context, data []byte, contentType, category string) (*models.Image, error) {
	s.uploaded.data, s.uploaded.contentType, s.uploaded.category = data, contentType, category
	return &models.Image{ID: primitive.NewObjectID(), URL: "https://img", Category: models.ImageCategory(category)}, nil
}

func (s *stubImages) Delete(ctx context.Context, id string) error { return s.deleteErr }

type testServer struct {
	handler   http.Handler
	workflow  *stubWorkflow
	adminAuth *stubAdminAuth
	images    *stubImages
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	ts := &testServer{
		workflow:  &stubWorkflow{own: map[string]*models.Registration{}},
		adminAuth: &stubAdminAuth{},
		images:    &stubImages{},
	}
	guard := services.NewAdminAuthService(nil, services.NewMemoryLoginLimiter(5, time.Minute), testAdminSecret, time.Hour, log, nil)
	ts.handler = NewRouter(RouterDeps{
		Log:          log,
		Slack:        services.NewSlackService("", log),
		Metrics:      services.NewMetrics(),
		CORSOrigins:  []string{"http://localhost:3000"},
		JWTSecret:    testJWTSecret,
		AdminGuard:   guard,
		Health:       NewHealthHandler("test", func() error { return nil }),
		Auth:         NewAuthHandler(services.NewGoogleAuthService(nil, testJWTSecret, time.Hour, log)),
		Registration: NewRegistrationHandler(ts.workflow, 8<<20, log),
		AdminReview:  NewAdminRegistrationHandler(ts.workflow),
		AdminAuth:    NewAdminAuthHandler(ts.adminAuth, true, false),
		Images:       NewImageHandler(ts.images, 8<<20, log),
	})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func adminBearer(t *testing.T) string {
	t.Helper()
	token, err := utils.GenerateAdminToken("id-1", "root", testAdminSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func registrationBody(t *testing.T, fields map[string]string, withReceipt bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withReceipt {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="receipt"; filename="receipt.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(pngBytes)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestRegisterMultipart(t *testing.T) {
	ts := newTestServer(t)
	body, contentType := registrationBody(t, map[string]string{
		"name":             "A",
		"batch":            "2000",
		"contact":          "9998887770",
		"email":            "a@x.com",
		"comingWithFamily": "true",
		"familyMembers":    `[{"name":"B","relation":"Spouse"}]`,
	}, true)

	req := httptest.NewRequest(http.MethodPost, "/api/event/register", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Oauth-Uid", "g-1")
	req.Header.Set("X-Oauth-Email", "a@x.com")
	rr := ts.do(req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	in := ts.workflow.submitted
	require.NotNil(t, in)
	assert.Equal(t, "g-1", in.Identity.SubjectID)
	assert.True(t, in.Form.ComingWithFamily)
	assert.Equal(t, []services.FamilyMemberForm{{Name: "B", Relation: "Spouse"}}, in.Form.FamilyMembers)
	assert.Equal(t, pngBytes, in.Receipt)
	assert.Equal(t, "image/png", in.ReceiptContentType)

	var created models.Registration
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.Equal(t, models.StatusPending, created.Status)
}

func TestRegisterIdentiteDepuisLeFormulaire(t *testing.T) {
	ts := newTestServer(t)
	body, contentType := registrationBody(t, map[string]string{
		"name": "A", "oauthUid": "g-9", "oauthEmail": "z@x.com",
	}, true)

	req := httptest.NewRequest(http.MethodPost, "/api/event/register", body)
	req.Header.Set("Content-Type", contentType)
	ts.do(req)

	require.NotNil(t, ts.workflow.submitted)
	assert.Equal(t, "g-9", ts.workflow.submitted.Identity.SubjectID)
}

func TestRegisterFamilleJSONInvalide(t *testing.T) {
	ts := newTestServer(t)
	body, contentType := registrationBody(t, map[string]string{
		"comingWithFamily": "on",
		"familyMembers":    "not-json",
	}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/event/register", body)
	req.Header.Set("Content-Type", contentType)
	rr := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Errors, "familyMembers")
	assert.Nil(t, ts.workflow.submitted)
}

func TestRegisterErreursMetier(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperrors.Validation(map[string]string{"contact": "Contact number must be exactly 10 digits"}), 400, apperrors.CodeValidation},
		{"doublon", apperrors.ErrConflict, 400, apperrors.CodeConflict},
		{"non authentifié", apperrors.ErrUnauthorized, 401, apperrors.CodeUnauthorized},
		{"stockage", services.ErrStorageFailed, 500, apperrors.CodeUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.workflow.submitErr = tt.err
			body, contentType := registrationBody(t, map[string]string{"oauthUid": "g-1", "oauthEmail": "a@x.com"}, true)
			req := httptest.NewRequest(http.MethodPost, "/api/event/register", body)
			req.Header.Set("Content-Type", contentType)

			rr := ts.do(req)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, decodeError(t, rr).Code)
		})
	}
}

func TestGetMine(t *testing.T) {
	ts := newTestServer(t)
	ts.workflow.own["g-1"] = &models.Registration{SubjectID: "g-1", Status: models.StatusApproved}

	// paramètre de requête en dernier recours
	rr := ts.do(httptest.NewRequest(http.MethodGet, "/api/event/registration/me?oauthUid=g-1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/event/registration/me?oauthUid=g-2", nil)
	req.Header.Set("X-Oauth-Uid", "g-1")
	assert.Equal(t, http.StatusOK, ts.do(req).Code, "l'en-tête prime sur la requête")

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/api/event/registration/me?oauthUid=nobody", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminRoutesProtegees(t *testing.T) {
	ts := newTestServer(t)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/admin/event/registrations"},
		{http.MethodGet, "/api/admin/event/registrations/stats"},
		{http.MethodPatch, "/api/admin/event/registrations/abc/status"},
		{http.MethodPost, "/api/admin/images/upload"},
		{http.MethodDelete, "/api/admin/images/abc"},
	}
	for _, route := range routes {
		rr := ts.do(httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, route.path)
	}
}

func TestAdminListeEtStatut(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/event/registrations?status=pending", nil)
	req.Header.Set("Authorization", adminBearer(t))
	rr := ts.do(req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.StatusPending, ts.workflow.listFilter.Status)
	assert.Equal(t, "[]\n", rr.Body.String())

	req = httptest.NewRequest(http.MethodPatch, "/api/admin/event/registrations/abc123/status", strings.NewReader(`{"status":"APPROVED","note":"paid"}`))
	req.Header.Set("Authorization", adminBearer(t))
	rr = ts.do(req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "abc123", ts.workflow.statusCall.id)
	assert.Equal(t, "root", ts.workflow.statusCall.actor)
	assert.Equal(t, "paid", ts.workflow.statusCall.note)

	ts.workflow.statusErr = apperrors.ErrInvalidTransition
	req = httptest.NewRequest(http.MethodPatch, "/api/admin/event/registrations/abc123/status", strings.NewReader(`{"status":"REJECTED"}`))
	req.Header.Set("Authorization", adminBearer(t))
	assert.Equal(t, http.StatusConflict, ts.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/event/registrations/stats", nil)
	req.AddCookie(&http.Cookie{Name: "adminToken", Value: strings.TrimPrefix(adminBearer(t), "Bearer ")})
	rr = ts.do(req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":2`)
}

func TestAdminLoginPoseLeCookie(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/login", strings.NewReader(`{"username":"root","password":"x"}`))
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	rr := ts.do(req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "203.0.113.7", ts.adminAuth.clientKey, "X-Forwarded-For ignoré sans proxy de confiance")

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "adminToken", cookies[0].Name)
	assert.Equal(t, "signed-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	var resp models.AdminLoginResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(3600), resp.ExpiresIn)
}

func TestAdminLoginBloque(t *testing.T) {
	ts := newTestServer(t)
	ts.adminAuth.err = &services.LoginBlockedError{RetryAfter: 90 * time.Second}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/login", strings.NewReader(`{"username":"root","password":"x"}`))
	rr := ts.do(req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "90", rr.Header().Get("Retry-After"))
	assert.Equal(t, apperrors.CodeTooManyAttempts, decodeError(t, rr).Code)
}

func TestAdminLogout(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(httptest.NewRequest(http.MethodPost, "/api/admin/auth/logout", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestImagesPublicEtUpload(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/api/admin/images?category=home_memories", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("category", "home_memories"))
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="image"; filename="a.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write(pngBytes)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/images/upload", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", adminBearer(t))
	rr = ts.do(req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "home_memories", ts.images.uploaded.category)
	assert.Equal(t, pngBytes, ts.images.uploaded.data)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotEmpty(t, resp["_id"])
	assert.Equal(t, "home_memories", resp["category"])
}

func TestImagesUploadDataURL(t *testing.T) {
	ts := newTestServer(t)
	payload := `{"category":"memories_page","image":"data:image/png;base64,iVBORw0KGgo="}`

	req := httptest.NewRequest(http.MethodPost, "/api/admin/images/upload", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", adminBearer(t))
	rr := ts.do(req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "image/png", ts.images.uploaded.contentType)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), ts.images.uploaded.data)
}

func TestImagesDelete(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/images/abc", nil)
	req.Header.Set("Authorization", adminBearer(t))
	rr := ts.do(req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())

	ts.images.deleteErr = apperrors.Clone(apperrors.ErrNotFound, "Image not found")
	req = httptest.NewRequest(http.MethodDelete, "/api/admin/images/abc", nil)
	req.Header.Set("Authorization", adminBearer(t))
	assert.Equal(t, http.StatusNotFound, ts.do(req).Code)
}

func TestAuthMe(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("X-Oauth-Uid", "g-1")
	req.Header.Set("X-Oauth-Email", "a@x.com")
	assert.Equal(t, http.StatusUnauthorized, ts.do(req).Code)

	token, err := utils.GenerateToken(utils.Claims{SubjectID: "g-1", Email: "a@x.com", Name: "A"}, testJWTSecret, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := ts.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"sub":"g-1","email":"a@x.com","name":"A"}`, rr.Body.String())
}

func TestAuthGoogleSansVerifieur(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/google", strings.NewReader(`{"credential":"abc"}`))
	assert.Equal(t, http.StatusUnauthorized, ts.do(req).Code)
}

func TestCORSPreflightAdmin(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/admin/event/registrations/abc/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := ts.do(req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsExposees(t *testing.T) {
	ts := newTestServer(t)
	ts.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `route="/api/health"`)
}
