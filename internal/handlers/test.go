package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"vcheck-go/internal/capture"
	"vcheck-go/internal/evaluate"
	"vcheck-go/internal/imaging"
	"vcheck-go/internal/interpret"
	"vcheck-go/internal/kits"
	"vcheck-go/internal/models"
	"vcheck-go/internal/prompt"
	"vcheck-go/internal/repository"
	"vcheck-go/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// SessionContextKey is where the session middleware stores the live session.
const SessionContextKey = "test_session"

// TestHandler drives the capture/interpret/result flow.
type TestHandler struct {
	log         *zap.Logger
	catalog     *kits.Catalog
	resolver    *prompt.Resolver
	interpreter interpret.Interpreter
	maxEdge     int

	// Seams for tests; default to the repository.
	createResult  func(ctx context.Context, entry *models.TestResult) error
	upsertSubject func(ctx context.Context, name, dob, gender, region, phone string) (*models.Subject, error)
}

func NewTestHandler(log *zap.Logger, catalog *kits.Catalog, resolver *prompt.Resolver, interpreter interpret.Interpreter, maxEdge int) *TestHandler {
	return &TestHandler{
		log:           log,
		catalog:       catalog,
		resolver:      resolver,
		interpreter:   interpreter,
		maxEdge:       maxEdge,
		createResult:  repository.CreateTestResult,
		upsertSubject: repository.UpsertSubject,
	}
}

func sessionFromContext(c *gin.Context) (*session.Session, bool) {
	value, exists := c.Get(SessionContextKey)
	if !exists {
		return nil, false
	}
	s, ok := value.(*session.Session)
	return s, ok
}

type setTestTypeRequest struct {
	TestType string `json:"test_type" binding:"required"`
}

// SetTestType records the selected test type on the session. Immutable once
// capture begins, but re-selectable before that.
func (h *TestHandler) SetTestType(c *gin.Context) {
	s, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	var req setTestTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "test_type is required"})
		return
	}
	if req.TestType != "urine" && req.TestType != "saliva" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown test type"})
		return
	}

	s.SetTestType(req.TestType)
	c.JSON(http.StatusOK, gin.H{"test_type": req.TestType})
}

// ListKits returns the kit catalog for one test type.
func (h *TestHandler) ListKits(c *gin.Context) {
	testType := c.Param("testType")
	profiles := h.catalog.ForTestType(testType)
	if profiles == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown test type"})
		return
	}

	type kitView struct {
		KitID    int    `json:"kit_id"`
		Name     string `json:"name"`
		TwoSided bool   `json:"two_sided"`
		Panels   int    `json:"panels"`
	}
	views := make([]kitView, len(profiles))
	for i, p := range profiles {
		views[i] = kitView{KitID: p.KitID, Name: p.Name, TwoSided: p.TwoSided, Panels: len(p.Analytes)}
	}
	c.JSON(http.StatusOK, gin.H{"kits": views})
}

// Capture runs one full capture attempt: stage the uploaded frame(s)
// through the capture controller, resolve the kit prompt, call the
// inference endpoint, evaluate, and persist the ledger entry. The response
// carries the labeled outcome plus the result-view redirect with the raw
// array as a query parameter.
func (h *TestHandler) Capture(c *gin.Context) {
	s, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	testType := c.Param("testType")
	kitID, err := strconv.Atoi(c.Param("kitId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kit id"})
		return
	}
	profile, found := h.catalog.Find(testType, kitID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown kit"})
		return
	}

	s.SetTestType(testType)
	s.SetKit(kitID)
	attempt := s.Attempt()

	ctx := c.Request.Context()
	source := capture.NewUploadSource()
	controller := capture.NewController(h.log, source, h.maxEdge, profile.TwoSided)
	defer controller.Teardown()

	if err := controller.Begin(ctx); err != nil {
		h.log.Error("Failed to enter capture state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start capture"})
		return
	}

	if err := h.stageAndShutter(ctx, c, source, controller, "front"); err != nil {
		h.respondCaptureError(c, err)
		return
	}
	if profile.TwoSided {
		if err := h.stageAndShutter(ctx, c, source, controller, "back"); err != nil {
			h.respondCaptureError(c, err)
			return
		}
	}

	front, back := controller.Images()
	s.SetFrontImage(front)
	s.SetBackImage(back)

	instruction := h.resolver.Resolve(ctx, testType, kitID)
	raw, err := interpret.InterpretSides(ctx, h.interpreter, instruction, front, back)
	if err != nil {
		h.log.Warn("Interpretation failed",
			zap.Error(err),
			zap.String("test_type", testType),
			zap.Int("kit_id", kitID),
		)
		if failErr := controller.Fail(ctx); failErr != nil {
			h.log.Error("Failed to re-enter capture state", zap.Error(failErr))
		}
		// Not a retake; the shutter is simply re-enabled.
		c.JSON(http.StatusBadGateway, gin.H{
			"error":             "could not interpret",
			"retakes_remaining": s.RetakesRemaining(),
		})
		return
	}

	// A retake may have superseded this attempt while the call was in
	// flight; late results are discarded.
	if s.Attempt() != attempt {
		h.log.Info("Discarding stale interpretation result", zap.Int("attempt", attempt))
		c.JSON(http.StatusConflict, gin.H{"error": "attempt superseded"})
		return
	}

	outcome, err := evaluate.Evaluate(raw, profile)
	if err != nil {
		// Length mismatch is an interpretation failure, never a silent
		// truncation: misalignment would mislabel analytes.
		h.log.Warn("Evaluation refused interpretation result",
			zap.Error(err),
			zap.Ints("raw", raw),
		)
		if failErr := controller.Fail(ctx); failErr != nil {
			h.log.Error("Failed to re-enter capture state", zap.Error(failErr))
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error":             "could not interpret",
			"retakes_remaining": s.RetakesRemaining(),
		})
		return
	}
	if err := controller.Complete(); err != nil {
		h.log.Error("Failed to finalize capture state", zap.Error(err))
	}

	persisted := h.persistOutcome(ctx, s, profile, raw, outcome, attempt)

	rawJSON, _ := json.Marshal(raw)
	redirect := fmt.Sprintf("/test/%s/%d/capture/result?result=%s",
		testType, kitID, url.QueryEscape(string(rawJSON)))

	c.JSON(http.StatusOK, gin.H{
		"results":           outcome.Results,
		"summary":           outcome.Summary,
		"raw":               raw,
		"persisted":         persisted,
		"redirect":          redirect,
		"retakes_remaining": s.RetakesRemaining(),
	})
}

// stageAndShutter decodes one uploaded side and triggers the shutter.
func (h *TestHandler) stageAndShutter(ctx context.Context, c *gin.Context, source *capture.UploadSource, controller *capture.Controller, field string) error {
	file, err := c.FormFile(field)
	if err != nil {
		return fmt.Errorf("%w: missing %s image", capture.ErrCameraNotReady, field)
	}
	data, err := readUpload(file)
	if err != nil {
		return err
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %v", capture.ErrCameraNotReady, err)
	}
	source.SetFrame(img)
	return controller.Shutter(ctx)
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *TestHandler) respondCaptureError(c *gin.Context, err error) {
	if errors.Is(err, capture.ErrCameraNotReady) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "camera not ready, try again"})
		return
	}
	h.log.Error("Capture failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "capture failed"})
}

// persistOutcome writes the ledger entry exactly once per completed
// interpretation. A write failure is a data-loss event: logged loudly, but
// the in-memory result is still shown to the user.
func (h *TestHandler) persistOutcome(ctx context.Context, s *session.Session, profile kits.Profile, raw []int, outcome evaluate.Outcome, attempt int) bool {
	if !s.MarkLedgerWritten(attempt) {
		h.log.Debug("Skipping duplicate ledger write", zap.Int("attempt", attempt))
		return false
	}

	subject, ok := s.Subject()
	if !ok {
		h.log.Error("Session has no verified subject, ledger entry dropped")
		return false
	}

	stored, err := h.upsertSubject(ctx, subject.Name, subject.DOB, subject.Gender, subject.Region, subject.Phone)
	if err != nil {
		h.log.Error("Persistence failure: subject upsert",
			zap.Error(err),
			zap.String("summary", string(outcome.Summary)),
		)
		return false
	}

	rawArray := make(pq.Int64Array, len(raw))
	for i, v := range raw {
		rawArray[i] = int64(v)
	}
	analyteRows := make([]models.AnalyteResult, len(outcome.Results))
	for i, r := range outcome.Results {
		analyteRows[i] = models.AnalyteResult{
			Position: r.Position,
			Analyte:  r.Analyte,
			Result:   string(r.Result),
		}
	}
	front, back := s.Images()
	entry := &models.TestResult{
		SubjectID:  stored.ID,
		TestType:   profile.TestType,
		KitID:      profile.KitID,
		RawResult:  rawArray,
		Summary:    string(outcome.Summary),
		FrontImage: front,
		BackImage:  back,
		Results:    analyteRows,
	}

	if err := h.createResult(ctx, entry); err != nil {
		h.log.Error("Persistence failure: ledger entry not written",
			zap.Error(err),
			zap.Uint("subject_id", stored.ID),
			zap.String("summary", string(outcome.Summary)),
		)
		return false
	}
	return true
}

// ShowResult labels the raw array carried in the query parameter against
// the kit profile. The display does not depend on persistence.
func (h *TestHandler) ShowResult(c *gin.Context) {
	testType := c.Param("testType")
	kitID, err := strconv.Atoi(c.Param("kitId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kit id"})
		return
	}
	profile, found := h.catalog.Find(testType, kitID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown kit"})
		return
	}

	var raw []int
	if err := json.Unmarshal([]byte(c.Query("result")), &raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or malformed result parameter"})
		return
	}

	outcome, err := evaluate.Evaluate(raw, profile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "result does not match kit layout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"kit":     profile.Name,
		"results": outcome.Results,
		"summary": outcome.Summary,
	})
}

// Retake spends one unit of the retake budget and discards the prior
// attempt. When the budget is exhausted the session terminates and the
// user is returned to the home state.
func (h *TestHandler) Retake(c *gin.Context, manager *session.Manager) {
	s, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	if err := s.ConsumeRetake(); err != nil {
		manager.Destroy(s.ID)
		c.JSON(http.StatusForbidden, gin.H{
			"error":      "no retakes remaining",
			"terminated": true,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"retakes_remaining": s.RetakesRemaining(),
	})
}

// ResetSession abandons the session entirely (exit-to-home).
func (h *TestHandler) ResetSession(c *gin.Context, manager *session.Manager) {
	if s, ok := sessionFromContext(c); ok {
		s.Reset()
		manager.Destroy(s.ID)
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}
