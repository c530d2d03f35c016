package router

import (
	"context"
	"net/http"
	"time"

	"vcheck-go/internal/config"
	"vcheck-go/internal/handlers"
	"vcheck-go/internal/interpret"
	"vcheck-go/internal/kits"
	"vcheck-go/internal/prompt"
	"vcheck-go/internal/repository"
	"vcheck-go/internal/session"
	"vcheck-go/internal/sms"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}
func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again later.")
}

// repositoryPromptStore adapts the repository to the resolver's store seam.
type repositoryPromptStore struct{}

func (repositoryPromptStore) GetPrompt(ctx context.Context, id string) (string, bool, error) {
	return repository.GetPrompt(ctx, id)
}

// Setup builds the engine with the full middleware chain and routes.
func Setup(log *zap.Logger, catalog *kits.Catalog, interpreter interpret.Interpreter, manager *session.Manager, verifier *sms.Verifier) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	store := cookie.NewStore([]byte(config.Conf.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400,
	})
	router.Use(sessions.Sessions("vchecksession", store))

	// --- Now that sessions are initialized, other middleware can use them ---
	router.Use(CSRFProtection())
	router.Use(SessionLoader(manager))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	router.Static("/assets", "./assets")

	// Handlers and routes
	resolver := prompt.NewResolver(repositoryPromptStore{})
	verifyHandler := handlers.NewVerifyHandler(log, verifier, manager)
	testHandler := handlers.NewTestHandler(log, catalog, resolver, interpreter, config.Conf.Capture.MaxEdgePixels)
	adminHandler := handlers.NewAdminHandler(log, catalog)

	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 5,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/csrf", func(c *gin.Context) {
		token, _ := c.Get("csrf_token")
		c.JSON(http.StatusOK, gin.H{"csrf_token": token})
	})

	router.POST("/verify/request", limiter, verifyHandler.RequestCode)
	router.POST("/verify/confirm", limiter, verifyHandler.ConfirmCode)

	testRoutes := router.Group("/test")
	testRoutes.Use(SessionRequired())
	{
		testRoutes.POST("/type", testHandler.SetTestType)
		testRoutes.GET("/:testType/kits", testHandler.ListKits)
		testRoutes.POST("/:testType/:kitId/capture", testHandler.Capture)
		testRoutes.GET("/:testType/:kitId/capture/result", testHandler.ShowResult)
		testRoutes.POST("/retake", func(c *gin.Context) {
			testHandler.Retake(c, manager)
		})
	}
	router.POST("/session/reset", func(c *gin.Context) {
		testHandler.ResetSession(c, manager)
	})

	router.POST("/admin/login", limiter, adminHandler.Login)
	adminRoutes := router.Group("/admin")
	adminRoutes.Use(AdminRequired())
	{
		adminRoutes.POST("/logout", adminHandler.Logout)
		adminRoutes.GET("/results", adminHandler.ListResults)
		adminRoutes.GET("/results/:id", adminHandler.GetResult)
		adminRoutes.GET("/prompts/:testType/:kitId", adminHandler.GetPrompt)
		adminRoutes.PUT("/prompts/:testType/:kitId", adminHandler.PutPrompt)
		adminRoutes.GET("/stats", adminHandler.Stats)
		adminRoutes.GET("/test-images", adminHandler.TestImages)
	}

	return router
}
