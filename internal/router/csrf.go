package router

import (
	"errors"
	"net/http"

	"vcheck-go/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Define keys for storing the token in the session and context.
const (
	csrfTokenSessionKey = "csrf_token"
	csrfTokenContextKey = "csrf_token"
	csrfTokenHeaderKey  = "X-CSRF-Token"
)

// CSRFProtection is a custom middleware to protect against CSRF attacks.
// The token lives in the cookie session; clients echo it back in the
// X-CSRF-Token header on unsafe methods.
func CSRFProtection() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		// 1. Get or create the real CSRF token for the session.
		var token string
		sessionToken := session.Get(csrfTokenSessionKey)

		if sessionToken == nil {
			newToken, err := utils.GenerateSecureToken(32)
			if err != nil {
				c.AbortWithError(http.StatusInternalServerError, errors.New("failed to generate CSRF token"))
				return
			}
			token = newToken
			session.Set(csrfTokenSessionKey, token)
			if err := session.Save(); err != nil {
				c.AbortWithError(http.StatusInternalServerError, errors.New("failed to save session"))
				return
			}
		} else {
			token = sessionToken.(string)
		}

		// 2. Make the token available for handlers.
		c.Set(csrfTokenContextKey, token)

		// 3. Validate the token on unsafe methods.
		if c.Request.Method == "POST" || c.Request.Method == "PUT" || c.Request.Method == "DELETE" {
			submittedToken := c.GetHeader(csrfTokenHeaderKey)
			if submittedToken == "" || submittedToken != token {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid CSRF token"})
				return
			}
		}

		c.Next()
	}
}
