package handlers

import (
	"context"
	"net/http"
	"strconv"

	"vcheck-go/internal/kits"
	"vcheck-go/internal/models"
	"vcheck-go/internal/prompt"
	"vcheck-go/internal/repository"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"
)

// AdminIDKey is the cookie-session key marking an authenticated admin.
const AdminIDKey = "adminID"

// AdminHandler serves the management surface: results listing and detail,
// prompt management, stats and the reference image gallery.
type AdminHandler struct {
	log     *zap.Logger
	catalog *kits.Catalog

	// Seams for tests; default to the repository.
	getAdminByEmail func(ctx context.Context, email string) (*models.Admin, error)
	listResults     func(ctx context.Context, search string, page, perPage int) (*repository.ResultPage, error)
	getResult       func(ctx context.Context, id uint) (*models.TestResult, error)
	getPrompt       func(ctx context.Context, id string) (string, bool, error)
	setPrompt       func(ctx context.Context, id, text string) error
	countByDay      func(ctx context.Context, days int) ([]repository.DailyCount, error)
}

func NewAdminHandler(log *zap.Logger, catalog *kits.Catalog) *AdminHandler {
	return &AdminHandler{
		log:             log,
		catalog:         catalog,
		getAdminByEmail: repository.GetAdminByEmail,
		listResults:     repository.ListTestResults,
		getResult:       repository.GetTestResult,
		getPrompt:       repository.GetPrompt,
		setPrompt:       repository.SetPrompt,
		countByDay:      repository.CountResultsByDay,
	}
}

type adminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an administrator and marks the cookie session.
func (h *AdminHandler) Login(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	admin, err := h.getAdminByEmail(c.Request.Context(), req.Email)
	if err != nil || !admin.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	cookieSession := sessions.Default(c)
	cookieSession.Set(AdminIDKey, admin.ID)
	if err := cookieSession.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_in": true})
}

// Logout clears the admin session.
func (h *AdminHandler) Logout(c *gin.Context) {
	cookieSession := sessions.Default(c)
	cookieSession.Delete(AdminIDKey)
	if err := cookieSession.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_out": true})
}

// ListResults returns ledger entries most-recent-first with search and
// pagination, the shape the management table renders.
func (h *AdminHandler) ListResults(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	search := c.Query("q")

	resultPage, err := h.listResults(c.Request.Context(), search, page, 10)
	if err != nil {
		h.log.Error("Failed to list test results", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load results"})
		return
	}

	type rowView struct {
		ID       uint   `json:"id"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Gender   string `json:"gender"`
		Region   string `json:"region"`
		Summary  string `json:"summary"`
		TestType string `json:"test_type"`
		KitID    int    `json:"kit_id"`
		Date     string `json:"date"`
	}
	rows := make([]rowView, len(resultPage.Results))
	for i, r := range resultPage.Results {
		rows[i] = rowView{
			ID:       r.ID,
			Name:     r.Subject.Name,
			Phone:    r.Subject.Phone,
			Gender:   r.Subject.Gender,
			Region:   r.Subject.Region,
			Summary:  r.Summary,
			TestType: r.TestType,
			KitID:    r.KitID,
			Date:     r.CreatedAt.Format("2006-01-02"),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results":     rows,
		"total":       resultPage.Total,
		"page":        resultPage.Page,
		"total_pages": resultPage.TotalPages,
	})
}

// GetResult returns one ledger entry with its per-analyte rows. The entry
// is immutable; no write-back endpoint exists.
func (h *AdminHandler) GetResult(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid result id"})
		return
	}

	result, err := h.getResult(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         result.ID,
		"subject":    result.Subject,
		"test_type":  result.TestType,
		"kit_id":     result.KitID,
		"raw_result": result.RawResult,
		"summary":    result.Summary,
		"results":    result.Results,
		"created_at": result.CreatedAt,
		"has_images": len(result.FrontImage) > 0,
	})
}

// GetPrompt returns the effective prompt for a kit: the stored override, or
// the shipped default when none exists.
func (h *AdminHandler) GetPrompt(c *gin.Context) {
	testType := c.Param("testType")
	kitID, err := strconv.Atoi(c.Param("kitId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kit id"})
		return
	}
	if _, found := h.catalog.Find(testType, kitID); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown kit"})
		return
	}

	id := prompt.Key(testType, kitID)
	text, overridden, err := h.getPrompt(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to load prompt", zap.Error(err), zap.String("id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load prompt"})
		return
	}
	if !overridden {
		text = prompt.Default(testType, kitID)
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         id,
		"text":       text,
		"overridden": overridden,
	})
}

type putPromptRequest struct {
	Text string `json:"text" binding:"required"`
}

// PutPrompt stores an override. The text is not validated: an administrator
// may store a prompt that elicits a mis-sized response, which then surfaces
// as an interpretation failure at capture time.
func (h *AdminHandler) PutPrompt(c *gin.Context) {
	testType := c.Param("testType")
	kitID, err := strconv.Atoi(c.Param("kitId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kit id"})
		return
	}
	if _, found := h.catalog.Find(testType, kitID); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown kit"})
		return
	}

	var req putPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	id := prompt.Key(testType, kitID)
	if err := h.setPrompt(c.Request.Context(), id, req.Text); err != nil {
		h.log.Error("Failed to save prompt", zap.Error(err), zap.String("id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save prompt"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "saved": true})
}

// Stats renders a chart of tests per day and positives over the last 30
// days as a standalone HTML page.
func (h *AdminHandler) Stats(c *gin.Context) {
	counts, err := h.countByDay(c.Request.Context(), 30)
	if err != nil {
		h.log.Error("Failed to aggregate result stats", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to load stats")
		return
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Tests Per Day",
			Subtitle: "Last 30 days",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Scale: opts.Bool(true)}),
	)

	days := make([]string, len(counts))
	totals := make([]opts.LineData, len(counts))
	positives := make([]opts.LineData, len(counts))
	for i, dc := range counts {
		days[i] = dc.Day.Format("01-02")
		totals[i] = opts.LineData{Value: dc.Total}
		positives[i] = opts.LineData{Value: dc.Positives}
	}

	line.SetXAxis(days).
		AddSeries("Total", totals).
		AddSeries("Positive", positives).
		SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(c.Writer); err != nil {
		h.log.Error("Failed to render stats chart", zap.Error(err))
	}
}

// TestImages lists the reference strip photos served from assets.
func (h *AdminHandler) TestImages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"images": []string{
			"/assets/images/dope-test1.jpg",
			"/assets/images/dope-test2.jpg",
			"/assets/images/dope-test3.jpg",
		},
	})
}
