package handlers

import (
	"context"
	"errors"
	"net/http"

	"vcheck-go/internal/models"
	"vcheck-go/internal/repository"
	"vcheck-go/internal/session"
	"vcheck-go/internal/sms"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionIDKey is the cookie-session key holding the server-side session ID.
const SessionIDKey = "sid"

// VerifyHandler runs the SMS identity-verification flow that opens a test
// session.
type VerifyHandler struct {
	log      *zap.Logger
	verifier *sms.Verifier
	manager  *session.Manager

	// Seam for tests; defaults to the repository.
	upsertSubject func(ctx context.Context, name, dob, gender, region, phone string) (*models.Subject, error)
}

func NewVerifyHandler(log *zap.Logger, verifier *sms.Verifier, manager *session.Manager) *VerifyHandler {
	return &VerifyHandler{
		log:           log,
		verifier:      verifier,
		manager:       manager,
		upsertSubject: repository.UpsertSubject,
	}
}

type requestCodeRequest struct {
	Phone      string `json:"phone" binding:"required"`
	Agreements struct {
		Terms             bool `json:"terms"`
		PrivacyCollection bool `json:"privacy_collection"`
		PrivacyThirdParty bool `json:"privacy_third_party"`
	} `json:"agreements"`
}

// RequestCode issues a verification code to the given phone number. All
// three consent flags are required before a code is sent.
func (h *VerifyHandler) RequestCode(c *gin.Context) {
	var req requestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone number is required"})
		return
	}
	if !req.Agreements.Terms || !req.Agreements.PrivacyCollection || !req.Agreements.PrivacyThirdParty {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all required agreements must be accepted"})
		return
	}

	if err := h.verifier.Issue(c.Request.Context(), req.Phone); err != nil {
		h.log.Error("Failed to issue verification code", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send verification code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

type confirmCodeRequest struct {
	Name   string `json:"name" binding:"required"`
	DOB    string `json:"dob" binding:"required"`
	Gender string `json:"gender" binding:"required"`
	Region string `json:"region" binding:"required"`
	Phone  string `json:"phone" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// ConfirmCode checks the submitted code, upserts the subject record and
// opens the test session. A mismatch or expiry is recoverable; the user may
// re-enter or re-request without restarting.
func (h *VerifyHandler) ConfirmCode(c *gin.Context) {
	var req confirmCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all subject fields and the code are required"})
		return
	}

	if err := h.verifier.Confirm(req.Phone, req.Code); err != nil {
		status := http.StatusUnauthorized
		msg := "verification failed"
		switch {
		case errors.Is(err, sms.ErrCodeExpired):
			msg = "verification code expired, request a new one"
		case errors.Is(err, sms.ErrCodeMismatch):
			msg = "verification code does not match"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	subject, err := h.upsertSubject(c.Request.Context(), req.Name, req.DOB, req.Gender, req.Region, req.Phone)
	if err != nil {
		h.log.Error("Failed to upsert subject record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store subject record"})
		return
	}

	testSession := h.manager.Create()
	testSession.SetUserInfo(session.SubjectInfo{
		Name:   req.Name,
		DOB:    req.DOB,
		Gender: req.Gender,
		Region: req.Region,
		Phone:  req.Phone,
	})

	cookieSession := sessions.Default(c)
	cookieSession.Set(SessionIDKey, testSession.ID)
	if err := cookieSession.Save(); err != nil {
		h.manager.Destroy(testSession.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verified":   true,
		"subject_id": subject.ID,
	})
}
