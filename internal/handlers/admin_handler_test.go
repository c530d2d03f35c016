package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vcheck-go/internal/models"
	"vcheck-go/internal/prompt"
	"vcheck-go/internal/repository"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type adminFixture struct {
	handler *AdminHandler
	router  *gin.Engine
	prompts map[string]string
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	f := &adminFixture{prompts: make(map[string]string)}
	f.handler = NewAdminHandler(zap.NewNop(), testCatalog())

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	f.handler.getAdminByEmail = func(ctx context.Context, email string) (*models.Admin, error) {
		if email != "admin@vcheck.local" {
			return nil, gorm.ErrRecordNotFound
		}
		return &models.Admin{ID: 1, Email: email, Password: string(hash)}, nil
	}
	f.handler.getPrompt = func(ctx context.Context, id string) (string, bool, error) {
		text, ok := f.prompts[id]
		return text, ok, nil
	}
	f.handler.setPrompt = func(ctx context.Context, id, text string) error {
		f.prompts[id] = text
		return nil
	}

	f.router = gin.New()
	f.router.Use(sessions.Sessions("vchecksession", cookie.NewStore([]byte("test-secret"))))
	f.router.POST("/admin/login", f.handler.Login)
	f.router.POST("/admin/logout", f.handler.Logout)
	f.router.GET("/admin/results", f.handler.ListResults)
	f.router.GET("/admin/results/:id", f.handler.GetResult)
	f.router.GET("/admin/prompts/:testType/:kitId", f.handler.GetPrompt)
	f.router.PUT("/admin/prompts/:testType/:kitId", f.handler.PutPrompt)
	f.router.GET("/admin/stats", f.handler.Stats)
	f.router.GET("/admin/test-images", f.handler.TestImages)
	return f
}

func TestAdminLogin(t *testing.T) {
	f := newAdminFixture(t)

	tests := []struct {
		name    string
		payload string
		status  int
	}{
		{"valid credentials", `{"email":"admin@vcheck.local","password":"hunter2"}`, http.StatusOK},
		{"wrong password", `{"email":"admin@vcheck.local","password":"wrong"}`, http.StatusUnauthorized},
		{"unknown email", `{"email":"nobody@vcheck.local","password":"hunter2"}`, http.StatusUnauthorized},
		{"missing fields", `{"email":"admin@vcheck.local"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, f.router, "/admin/login", tt.payload)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestAdminListResults(t *testing.T) {
	f := newAdminFixture(t)

	var gotSearch string
	var gotPage int
	f.handler.listResults = func(ctx context.Context, search string, page, perPage int) (*repository.ResultPage, error) {
		gotSearch, gotPage = search, page
		return &repository.ResultPage{
			Results: []models.TestResult{{
				ID:        3,
				Subject:   models.Subject{Name: "홍길동", Phone: "01012345678", Gender: "M", Region: "Seoul"},
				TestType:  "urine",
				KitID:     1,
				Summary:   "negative",
				CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
			}},
			Total: 1, Page: 2, PerPage: 10, TotalPages: 1,
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/results?page=2&q=%ED%99%8D", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "홍", gotSearch)
	assert.Equal(t, 2, gotPage)

	body := decodeBody(t, w)
	rows := body["results"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "홍길동", row["name"])
	assert.Equal(t, "2026-08-01", row["date"])
	assert.EqualValues(t, 1, body["total"])
}

func TestAdminGetResult(t *testing.T) {
	f := newAdminFixture(t)

	f.handler.getResult = func(ctx context.Context, id uint) (*models.TestResult, error) {
		if id != 3 {
			return nil, gorm.ErrRecordNotFound
		}
		return &models.TestResult{
			ID:         3,
			Subject:    models.Subject{Name: "홍길동"},
			TestType:   "urine",
			KitID:      1,
			Summary:    "positive",
			FrontImage: []byte("png"),
			Results:    []models.AnalyteResult{{Position: 0, Analyte: "BUP", Result: "positive"}},
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/results/3", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "positive", body["summary"])
	assert.Equal(t, true, body["has_images"])

	req = httptest.NewRequest(http.MethodGet, "/admin/results/99", nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminPromptRoundTrip(t *testing.T) {
	f := newAdminFixture(t)

	// Before any override the shipped default is served.
	req := httptest.NewRequest(http.MethodGet, "/admin/prompts/urine/1", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["overridden"])
	assert.Equal(t, prompt.Default("urine", 1), body["text"])

	// Store an override; it is not validated.
	put := httptest.NewRequest(http.MethodPut, "/admin/prompts/urine/1",
		bytes.NewBufferString(`{"text":"describe the strip colors in prose"}`))
	put.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, put)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/prompts/urine/1", nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	body = decodeBody(t, w)
	assert.Equal(t, true, body["overridden"])
	assert.Equal(t, "describe the strip colors in prose", body["text"])
}

func TestAdminPromptUnknownKit(t *testing.T) {
	f := newAdminFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/prompts/urine/9", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminStats(t *testing.T) {
	f := newAdminFixture(t)

	f.handler.countByDay = func(ctx context.Context, days int) ([]repository.DailyCount, error) {
		assert.Equal(t, 30, days)
		return []repository.DailyCount{
			{Day: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), Total: 5, Positives: 1},
			{Day: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), Total: 3, Positives: 0},
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Tests Per Day")
}

func TestAdminStatsAggregateFailure(t *testing.T) {
	f := newAdminFixture(t)

	f.handler.countByDay = func(ctx context.Context, days int) ([]repository.DailyCount, error) {
		return nil, errors.New("db down")
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAdminTestImages(t *testing.T) {
	f := newAdminFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/test-images", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	images := decodeBody(t, w)["images"].([]any)
	assert.Len(t, images, 3)
}
