package handler

import (
	"net/http"
	"runtime/debug"

	"ngramlm/internal/controller"
	"ngramlm/pkg/mcp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter wires the language model API; mcpServer may be nil
func SetupRouter(lmController *controller.LMController, mcpServer *mcp.NGramServer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(CustomRecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/stats", lmController.Stats)
		v1.POST("/count", lmController.Count)
		v1.POST("/probability", lmController.Probability)
		v1.POST("/perplexity", lmController.Perplexity)
		v1.POST("/sample", lmController.Sample)
		v1.POST("/generate", lmController.Generate)
		v1.POST("/evaluate", lmController.Evaluate)
		v1.POST("/documents", lmController.AddDocument)
		v1.GET("/documents/:id", lmController.GetDocument)
		v1.DELETE("/documents/:id", lmController.DeleteDocument)
		v1.POST("/train", lmController.Train)
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "healthy",
			})
		})
	}

	if mcpServer != nil {
		mcpServer.SetupHTTPRoutes(router)
	}

	return router
}

func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
		)
		c.Next()
	}
}

func CustomRecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
