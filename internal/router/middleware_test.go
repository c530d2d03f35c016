package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vcheck-go/internal/handlers"
	"vcheck-go/internal/session"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSessionRouter(manager *session.Manager) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("vchecksession", cookie.NewStore([]byte("test-secret"))))
	r.Use(SessionLoader(manager))

	r.POST("/open", func(c *gin.Context) {
		s := manager.Create()
		cookieSession := sessions.Default(c)
		cookieSession.Set(handlers.SessionIDKey, s.ID)
		cookieSession.Save()
		c.JSON(http.StatusOK, gin.H{"id": s.ID})
	})

	protected := r.Group("/test")
	protected.Use(SessionRequired())
	protected.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestSessionRequiredRejectsAnonymous(t *testing.T) {
	r := newSessionRouter(session.NewManager(3, time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/test/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "identity verification required")
}

func TestSessionLoaderAttachesLiveSession(t *testing.T) {
	manager := session.NewManager(3, time.Hour)
	r := newSessionRouter(manager)

	open := httptest.NewRequest(http.MethodPost, "/open", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, open)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/test/ping", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionLoaderDropsDestroyedSession(t *testing.T) {
	manager := session.NewManager(3, time.Hour)
	r := newSessionRouter(manager)

	open := httptest.NewRequest(http.MethodPost, "/open", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, open)
	cookies := w.Result().Cookies()

	var opened struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))
	require.NotEmpty(t, opened.ID)

	// Terminate the session out from under the cookie.
	manager.Destroy(opened.ID)

	req := httptest.NewRequest(http.MethodGet, "/test/ping", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "a zombie cookie must not resurrect a destroyed session")
}

func TestCSRFProtection(t *testing.T) {
	r := gin.New()
	r.Use(sessions.Sessions("vchecksession", cookie.NewStore([]byte("test-secret"))))
	r.Use(CSRFProtection())
	r.GET("/csrf", func(c *gin.Context) {
		token, _ := c.Get("csrf_token")
		c.JSON(http.StatusOK, gin.H{"csrf_token": token})
	})
	r.POST("/mutate", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Reads pass without a token and seed the session.
	get := httptest.NewRequest(http.MethodGet, "/csrf", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, get)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()

	var tokenResp struct {
		Token string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokenResp))
	require.NotEmpty(t, tokenResp.Token)

	// Unsafe method without the header is refused.
	post := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	for _, ck := range cookies {
		post.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, post)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Echoing the session token back passes.
	post = httptest.NewRequest(http.MethodPost, "/mutate", nil)
	for _, ck := range cookies {
		post.AddCookie(ck)
	}
	post.Header.Set("X-CSRF-Token", tokenResp.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, post)
	assert.Equal(t, http.StatusOK, w.Code)
}
