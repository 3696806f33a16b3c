package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/mentor-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := deps.DBClient.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "learning-api-service",
				"error":   err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "learning-api-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	learningHandler := handler.NewLearningHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobHandler.SubmitJob)
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/:job_id", jobHandler.GetJob)
			jobs.POST("/:job_id/cancel", jobHandler.CancelJob)
		}

		v1.POST("/quiz/submit", learningHandler.SubmitQuiz)

		users := v1.Group("/users/:user_id")
		{
			users.GET("/profile", learningHandler.GetProfile)
			users.GET("/journey", learningHandler.GetJourney)
			users.GET("/mastery", learningHandler.GetMastery)
			users.GET("/performance", learningHandler.GetPerformance)
			users.GET("/recommendations", learningHandler.GetRecommendations)
		}

		v1.GET("/agent-decisions", learningHandler.ListAgentDecisions)
	}

	return r
}
