package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edubase/schoolhub/internal/model"
	jwtpkg "edubase/schoolhub/pkg/jwt"
)

func newTestManager() *jwtpkg.Manager {
	return jwtpkg.NewManager("access-secret", "refresh-secret", "system-admin-secret", "schoolhub-test",
		time.Hour, 168*time.Hour, 8*time.Hour)
}

// expiredManager shares secrets with newTestManager but issues tokens that
// are already past their expiry.
func expiredManager() *jwtpkg.Manager {
	return jwtpkg.NewManager("access-secret", "refresh-secret", "system-admin-secret", "schoolhub-test",
		-time.Minute, -time.Minute, -time.Minute)
}

func probeRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/probe", chain...)
	return r
}

func doProbe(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func teacherToken(t *testing.T, m *jwtpkg.Manager) string {
	t.Helper()
	token, err := m.IssueAccessToken(jwtpkg.Identity{
		UserID: "7f9c0b1a-0000-0000-0000-000000000001", SchoolID: "GRN1234",
		Email: "tessa@greenwood.example", Role: "teacher",
	})
	require.NoError(t, err)
	return string(token)
}

func schoolAdminToken(t *testing.T, m *jwtpkg.Manager) string {
	t.Helper()
	token, err := m.IssueAccessToken(jwtpkg.Identity{
		SchoolID: "GRN1234", Email: "office@greenwood.example", Role: "school_admin",
	})
	require.NoError(t, err)
	return string(token)
}

func TestJWTAuthAcceptsAccessToken(t *testing.T) {
	m := newTestManager()
	var got *jwtpkg.Claims
	r := probeRouter(JWTAuth(m), func(c *gin.Context) {
		if v, ok := c.Get(ContextKeyUserClaims); ok {
			got = v.(*jwtpkg.Claims)
		}
	})

	w := doProbe(r, "Bearer "+teacherToken(t, m))

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "teacher", got.Role)
	assert.Equal(t, "GRN1234", got.SchoolID)
}

func TestJWTAuthRejectsMalformedHeaders(t *testing.T) {
	m := newTestManager()
	r := probeRouter(JWTAuth(m))

	for _, header := range []string{"", "Token abc", "Bearer"} {
		w := doProbe(r, header)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Authorization header is missing or malformed", messageOf(t, w))
	}
}

func TestJWTAuthDistinguishesExpiredFromInvalid(t *testing.T) {
	m := newTestManager()
	r := probeRouter(JWTAuth(m))

	w := doProbe(r, "Bearer "+teacherToken(t, expiredManager()))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has expired", messageOf(t, w))

	w = doProbe(r, "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", messageOf(t, w))
}

func TestJWTAuthAcceptsSystemAdminToken(t *testing.T) {
	m := newTestManager()
	token, err := m.IssueSystemAdminToken("root@schoolhub.example", "full", true)
	require.NoError(t, err)

	var saClaims *jwtpkg.SystemAdminClaims
	var hasUserClaims bool
	r := probeRouter(JWTAuth(m), func(c *gin.Context) {
		_, hasUserClaims = c.Get(ContextKeyUserClaims)
		if v, ok := c.Get(ContextKeySystemAdminClaims); ok {
			saClaims = v.(*jwtpkg.SystemAdminClaims)
		}
	})

	w := doProbe(r, "Bearer "+string(token))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, hasUserClaims, "system-admin tokens land under their own key")
	require.NotNil(t, saClaims)
	assert.Equal(t, "root@schoolhub.example", saClaims.Email)
}

func TestSystemAdminAuthRejectsAccessTokens(t *testing.T) {
	m := newTestManager()
	r := probeRouter(SystemAdminAuth(m))

	w := doProbe(r, "Bearer "+teacherToken(t, m))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", messageOf(t, w))

	token, err := m.IssueSystemAdminToken("root@schoolhub.example", "full", true)
	require.NoError(t, err)
	w = doProbe(r, "Bearer "+string(token))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireSchoolActorBlocksSystemAdmins(t *testing.T) {
	m := newTestManager()
	r := probeRouter(JWTAuth(m), RequireSchoolActor())

	w := doProbe(r, "Bearer "+teacherToken(t, m))
	assert.Equal(t, http.StatusNoContent, w.Code)

	token, err := m.IssueSystemAdminToken("root@schoolhub.example", "full", true)
	require.NoError(t, err)
	w = doProbe(r, "Bearer "+string(token))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "This endpoint requires a school account", messageOf(t, w))
}

func TestRequireAdmin(t *testing.T) {
	m := newTestManager()
	r := probeRouter(JWTAuth(m), RequireAdmin())

	adminToken, err := m.IssueAccessToken(jwtpkg.Identity{
		UserID: "7f9c0b1a-0000-0000-0000-000000000002", SchoolID: "GRN1234",
		Email: "head@greenwood.example", Role: "admin",
	})
	require.NoError(t, err)
	w := doProbe(r, "Bearer "+string(adminToken))
	assert.Equal(t, http.StatusNoContent, w.Code)

	// A school-admin token has no userId but full admin rights.
	w = doProbe(r, "Bearer "+schoolAdminToken(t, m))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doProbe(r, "Bearer "+teacherToken(t, m))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Admin access required", messageOf(t, w))
}

func TestRequireRole(t *testing.T) {
	m := newTestManager()
	r := probeRouter(JWTAuth(m), RequireRole(model.RoleTeacher, model.RoleAdmin))

	w := doProbe(r, "Bearer "+teacherToken(t, m))
	assert.Equal(t, http.StatusNoContent, w.Code)

	parentToken, err := m.IssueAccessToken(jwtpkg.Identity{
		UserID: "7f9c0b1a-0000-0000-0000-000000000003", SchoolID: "GRN1234",
		Email: "robin@greenwood.example", Role: "parent",
	})
	require.NoError(t, err)
	w = doProbe(r, "Bearer "+string(parentToken))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions", messageOf(t, w))
}
