package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/classifier"
	"midas/reimbursehub/internal/config"
	"midas/reimbursehub/internal/repository"
	"midas/reimbursehub/internal/service"
	"midas/reimbursehub/internal/storage"
	jwtpkg "midas/reimbursehub/pkg/jwt"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	files  storage.Storage
}

func newTestServer(t *testing.T, joinPerMinute float64, burst int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	classifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"Approved","feedback":"ok"}`))
	}))
	t.Cleanup(classifierSrv.Close)

	cfg := &config.Config{
		Invite:     config.InviteConfig{TTL: 7 * 24 * time.Hour, CodeLength: 8, MaxAttempts: 5},
		Upload:     config.UploadConfig{MaxBytes: 5 << 20, AllowedTypes: []string{"application/pdf", "image/png"}},
		Classifier: config.ClassifierConfig{URL: classifierSrv.URL, Timeout: 5 * time.Second},
		RateLimit:  config.RateLimitConfig{JoinPerMinute: joinPerMinute, Burst: burst},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST"}},
	}

	logger := zap.NewNop()
	store := repository.NewMemoryStore()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	jm := jwtpkg.NewManager("router-test-signing-key-0123456789", "reimbursehub-test", time.Hour, 24*time.Hour)

	authSvc := service.NewAuthService(store, repository.NewMemoryStateStore(), jm, logger)
	invites := service.NewInviteService(store, nil, cfg.Invite, logger)
	groups := service.NewGroupService(store, cfg.Invite, logger)
	memberships := service.NewMembershipService(store, invites, groups, logger)
	claims := service.NewReimbursementService(store, files, classifier.NewHTTPClient(cfg.Classifier, logger), cfg.Upload, logger)

	router := SetupRouter(cfg, logger, authSvc, Handlers{
		Auth:          NewAuthHandler(authSvc),
		Groups:        NewGroupHandler(memberships),
		Reimbursement: NewReimbursementHandler(claims, cfg.Upload.MaxBytes),
		Admin:         NewAdminHandler(invites, groups, claims),
	})
	return &testServer{t: t, router: router, files: files}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.send(req, token)
}

func (s *testServer) send(req *http.Request, token string) (int, envelope) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) signup(name, role string) string {
	s.t.Helper()
	email := name + "@acme.test"
	status, _ := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "company": "Acme", "email": email, "password": "correct horse", "role": role,
	})
	require.Equal(s.t, http.StatusCreated, status)

	status, env := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": "correct horse"})
	require.Equal(s.t, http.StatusOK, status)
	var tokens service.TokenSet
	require.NoError(s.t, json.Unmarshal(env.Data, &tokens))
	return tokens.AccessToken
}

func (s *testServer) issueCode(adminToken string) (code, groupID string) {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/api/v1/admin/invite-codes", adminToken, nil)
	require.Equal(s.t, http.StatusCreated, status)
	var ic struct {
		Code    string `json:"code"`
		GroupID string `json:"group_id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &ic))
	return ic.Code, ic.GroupID
}

func (s *testServer) storedCount() int {
	s.t.Helper()
	objs, err := s.files.List(context.Background())
	require.NoError(s.t, err)
	return len(objs)
}

func receiptForm(t *testing.T, details string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("reimbursement_details", details))
	if content != nil {
		part, err := w.CreateFormFile("receipt", "receipt.pdf")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestRouter_Healthz(t *testing.T) {
	s := newTestServer(t, 60, 10)
	status, _ := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t, 60, 10)

	status, env := s.do(http.MethodGet, "/api/v1/groups", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, http.StatusUnauthorized, env.Code)

	status, _ = s.do(http.MethodGet, "/api/v1/groups", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_RoleGates(t *testing.T) {
	s := newTestServer(t, 60, 10)
	admin := s.signup("ada", "admin")
	member := s.signup("una", "member")

	status, _ := s.do(http.MethodPost, "/api/v1/admin/invite-codes", member, nil)
	assert.Equal(t, http.StatusForbidden, status)

	body, ct := receiptForm(t, "taxi", []byte("%PDF-1.4 receipt"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reimbursements", body)
	req.Header.Set("Content-Type", ct)
	status, _ = s.send(req, admin)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRouter_EndToEnd(t *testing.T) {
	s := newTestServer(t, 60, 10)
	admin := s.signup("ada", "admin")
	member := s.signup("una", "member")

	code, groupID := s.issueCode(admin)

	status, env := s.do(http.MethodPost, "/api/v1/groups/join", member, gin.H{"code": code})
	require.Equal(t, http.StatusOK, status, env.Message)
	var joined service.GroupView
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, groupID, joined.ID.String())
	assert.True(t, joined.IsActive)
	assert.Equal(t, int64(2), joined.MemberCount)

	status, env = s.do(http.MethodGet, "/api/v1/me", member, nil)
	require.Equal(t, http.StatusOK, status)
	var profile service.Profile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	require.NotNil(t, profile.AdminEmail)
	assert.Equal(t, "ada@acme.test", *profile.AdminEmail)

	body, ct := receiptForm(t, `{"details":"taxi","amount":"42.00"}`, []byte("%PDF-1.4 receipt"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reimbursements", body)
	req.Header.Set("Content-Type", ct)
	status, env = s.send(req, member)
	require.Equal(t, http.StatusCreated, status, env.Message)
	var decision struct {
		Status   string `json:"status"`
		Feedback string `json:"feedback"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	assert.Equal(t, "Approved", decision.Status)
	assert.Equal(t, "ok", decision.Feedback)

	status, env = s.do(http.MethodGet, "/api/v1/admin/reimbursements", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var list []struct {
		UserEmail string `json:"user_email"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "una@acme.test", list[0].UserEmail)
	assert.Equal(t, "Approved", list[0].Status)

	status, env = s.do(http.MethodGet, "/api/v1/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "una@acme.test")
}

func TestRouter_ErrorMapping(t *testing.T) {
	s := newTestServer(t, 600, 100)
	admin := s.signup("ada", "admin")
	una := s.signup("una", "member")
	ugo := s.signup("ugo", "member")

	status, _ := s.do(http.MethodPost, "/api/v1/groups/join", una, gin.H{"code": "NOPE0000"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(http.MethodPost, "/api/v1/groups/join", una, gin.H{})
	assert.Equal(t, http.StatusBadRequest, status)

	code, groupID := s.issueCode(admin)
	status, _ = s.do(http.MethodPost, "/api/v1/groups/join", una, gin.H{"code": code})
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(http.MethodPost, "/api/v1/groups/join", ugo, gin.H{"code": code})
	assert.Equal(t, http.StatusConflict, status)

	// A second code for a group una already belongs to.
	status, env := s.do(http.MethodPost, "/api/v1/admin/invite-codes", admin, gin.H{"group_id": groupID})
	require.Equal(t, http.StatusCreated, status)
	var second struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &second))
	status, _ = s.do(http.MethodPost, "/api/v1/groups/join", una, gin.H{"code": second.Code})
	assert.Equal(t, http.StatusConflict, status)

	_, otherGroup := s.issueCode(admin)
	status, _ = s.do(http.MethodPost, "/api/v1/groups/active", una, gin.H{"group_id": otherGroup})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(http.MethodGet, "/api/v1/groups/"+otherGroup, una, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(http.MethodGet, "/api/v1/groups/not-a-uuid", una, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	body, ct := receiptForm(t, "taxi", []byte("%PDF-1.4 receipt"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reimbursements", body)
	req.Header.Set("Content-Type", ct)
	status, _ = s.send(req, ugo)
	assert.Equal(t, http.StatusBadRequest, status, "no active group")

	body, ct = receiptForm(t, "taxi", nil)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/reimbursements", body)
	req.Header.Set("Content-Type", ct)
	status, env = s.send(req, una)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "invalid attachment")

	// A 6 MiB receipt overflows the body cap before the service sees it.
	body, ct = receiptForm(t, "taxi", pdfOfSize(6<<20))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/reimbursements", body)
	req.Header.Set("Content-Type", ct)
	status, env = s.send(req, una)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "invalid attachment")
	assert.Zero(t, s.storedCount())

	body, ct = receiptForm(t, "taxi", pdfOfSize(5<<20))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/reimbursements", body)
	req.Header.Set("Content-Type", ct)
	status, env = s.send(req, una)
	assert.Equal(t, http.StatusCreated, status, env.Message)
	assert.Equal(t, 1, s.storedCount())
}

func pdfOfSize(n int) []byte {
	b := bytes.Repeat([]byte("x"), n)
	copy(b, "%PDF-1.4\n")
	return b
}

func TestRouter_AdminCreatesGroup(t *testing.T) {
	s := newTestServer(t, 60, 10)
	admin := s.signup("ada", "admin")
	member := s.signup("una", "member")

	status, env := s.do(http.MethodPost, "/api/v1/admin/groups", admin, gin.H{
		"name": "Field Ops", "invite_code": "ops00001", "is_private": true,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var group struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		InviteCode  string `json:"invite_code"`
		IsPrivate   bool   `json:"is_private"`
		MemberCount int    `json:"member_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &group))
	assert.Equal(t, "Field Ops", group.Name)
	assert.Equal(t, "OPS00001", group.InviteCode)
	assert.True(t, group.IsPrivate)
	assert.Equal(t, 1, group.MemberCount)

	status, _ = s.do(http.MethodPost, "/api/v1/admin/groups", admin, gin.H{"invite_code": "OPS00001"})
	assert.Equal(t, http.StatusConflict, status)
	status, _ = s.do(http.MethodPost, "/api/v1/admin/groups", admin, gin.H{"name": "No code"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = s.do(http.MethodPost, "/api/v1/admin/groups", member, gin.H{"invite_code": "OPS00002"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(http.MethodPost, "/api/v1/groups/join", member, gin.H{"code": "OPS00001"})
	require.Equal(t, http.StatusOK, status, env.Message)
	var joined service.GroupView
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, group.ID, joined.ID.String())
	assert.Equal(t, int64(2), joined.MemberCount)
}

func TestRouter_JoinRateLimited(t *testing.T) {
	s := newTestServer(t, 1, 2)
	member := s.signup("una", "member")

	for i := 0; i < 2; i++ {
		status, _ := s.do(http.MethodPost, "/api/v1/groups/join", member, gin.H{"code": "NOPE0000"})
		assert.Equal(t, http.StatusNotFound, status)
	}
	status, _ := s.do(http.MethodPost, "/api/v1/groups/join", member, gin.H{"code": "NOPE0000"})
	assert.Equal(t, http.StatusTooManyRequests, status)
}
