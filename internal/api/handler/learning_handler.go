package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/learnloop/mentor-be/internal/api/dto"
	"github.com/learnloop/mentor-be/internal/cache"
	"github.com/learnloop/mentor-be/internal/domain"
	"github.com/learnloop/mentor-be/internal/events"
	"github.com/learnloop/mentor-be/internal/mastery"
	"github.com/learnloop/mentor-be/internal/recommend"
	"github.com/learnloop/mentor-be/internal/storage"
)

// completionThreshold is the quiz percentage at or above which an
// in-progress journey topic counts as completed.
const completionThreshold = 70.0

// SubmitQuiz handles POST /api/v1/quiz/submit
// The synchronous scoring path: updates mastery, records the attempt,
// completes the journey topic on a passing score and invalidates the
// affected read caches.
func (h *LearningHandler) SubmitQuiz(c *gin.Context) {
	var req dto.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if req.Score > req.TotalQuestions {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "score cannot exceed total_questions",
		})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	percentage := float64(req.Score) / float64(req.TotalQuestions) * 100

	previous, err := h.storage.GetTopicMastery(ctx, req.UserID, req.Topic)
	if err != nil {
		h.logger.Error("Failed to load mastery", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load mastery",
		})
		return
	}

	updated := mastery.Update(previous, req.UserID, req.Topic, percentage, now)
	if err := h.storage.UpsertMastery(ctx, &updated); err != nil {
		h.logger.Error("Failed to update mastery", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update mastery",
		})
		return
	}

	attempt := domain.QuizAttempt{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		Topic:          req.Topic,
		Difficulty:     req.Difficulty,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		Percentage:     percentage,
		TimeSpent:      req.TimeSpent,
		CompletedAt:    now,
	}
	if err := h.storage.InsertQuizAttempt(ctx, &attempt); err != nil {
		h.logger.Error("Failed to record quiz attempt", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to record quiz attempt",
		})
		return
	}

	topicCompleted := false
	if percentage >= completionThreshold {
		switch err := h.storage.CompleteTopic(ctx, req.UserID, req.Topic); {
		case err == nil:
			topicCompleted = true
		case errors.Is(err, domain.ErrTopicNotFound):
			// Quizzes on topics outside the journey still update mastery.
		default:
			h.logger.Error("Failed to complete topic",
				slog.String("topic", req.Topic),
				slog.String("error", err.Error()),
			)
		}
	}

	namespaces := []string{
		cache.NamespaceMastery,
		cache.NamespacePerformance,
		cache.NamespaceRecommendations,
	}
	if topicCompleted {
		namespaces = append(namespaces, cache.NamespaceJourney)
	}
	h.invalidate(ctx, req.UserID, namespaces, "quiz_submitted")

	c.JSON(http.StatusOK, dto.SubmitQuizResponse{
		Topic:          req.Topic,
		Percentage:     percentage,
		MasteryScore:   updated.MasteryScore,
		SkillLevel:     updated.SkillLevel,
		Attempts:       updated.Attempts,
		TopicCompleted: topicCompleted,
	})
}

// GetProfile handles GET /api/v1/users/:user_id/profile
func (h *LearningHandler) GetProfile(c *gin.Context) {
	userID := c.Param("user_id")
	key := cache.Key(cache.NamespaceProfile, userID)

	value, err := h.cache.GetOrCompute(key, h.cacheTTL.ProfileTTL, func() (any, error) {
		p, err := h.storage.GetProfile(c.Request.Context(), userID)
		if err != nil {
			return nil, err
		}
		return dto.ProfileResponse{
			UserID:         p.UserID,
			SkillLevel:     p.SkillLevel,
			LearningStyle:  p.LearningStyle,
			PriorityTopics: p.PriorityTopics,
			Pace:           p.Pace,
			Summary:        p.Summary,
		}, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "profile not found",
			})
			return
		}
		h.logger.Error("Failed to load profile", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load profile",
		})
		return
	}

	c.JSON(http.StatusOK, value)
}

// GetJourney handles GET /api/v1/users/:user_id/journey
func (h *LearningHandler) GetJourney(c *gin.Context) {
	userID := c.Param("user_id")
	key := cache.Key(cache.NamespaceJourney, userID)

	value, err := h.cache.GetOrCompute(key, h.cacheTTL.JourneyTTL, func() (any, error) {
		topics, err := h.storage.GetJourney(c.Request.Context(), userID)
		if err != nil {
			return nil, err
		}
		out := make([]dto.JourneyTopicDTO, len(topics))
		for i, t := range topics {
			out[i] = dto.JourneyTopicDTO{
				Topic:          t.Topic,
				Position:       t.Position,
				Status:         t.Status,
				Description:    t.Description,
				Prerequisites:  t.Prerequisites,
				EstimatedHours: t.EstimatedHours,
				IsMilestone:    t.IsMilestone,
				Reasoning:      t.Reasoning,
			}
		}
		return dto.JourneyResponse{UserID: userID, Topics: out}, nil
	})
	if err != nil {
		h.logger.Error("Failed to load journey", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load journey",
		})
		return
	}

	c.JSON(http.StatusOK, value)
}

// GetMastery handles GET /api/v1/users/:user_id/mastery
func (h *LearningHandler) GetMastery(c *gin.Context) {
	userID := c.Param("user_id")
	key := cache.Key(cache.NamespaceMastery, userID)

	value, err := h.cache.GetOrCompute(key, h.cacheTTL.MasteryTTL, func() (any, error) {
		records, err := h.storage.GetMastery(c.Request.Context(), userID)
		if err != nil {
			return nil, err
		}
		out := make([]dto.TopicMasteryDTO, len(records))
		for i, r := range records {
			out[i] = dto.TopicMasteryDTO{
				Topic:        r.Topic,
				MasteryScore: r.MasteryScore,
				SkillLevel:   r.SkillLevel,
				Attempts:     r.Attempts,
			}
		}
		return dto.MasteryResponse{UserID: userID, Records: out}, nil
	})
	if err != nil {
		h.logger.Error("Failed to load mastery", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load mastery",
		})
		return
	}

	c.JSON(http.StatusOK, value)
}

// GetPerformance handles GET /api/v1/users/:user_id/performance
func (h *LearningHandler) GetPerformance(c *gin.Context) {
	userID := c.Param("user_id")
	key := cache.Key(cache.NamespacePerformance, userID)

	value, err := h.cache.GetOrCompute(key, h.cacheTTL.PerformanceTTL, func() (any, error) {
		ctx := c.Request.Context()
		records, err := h.storage.GetMastery(ctx, userID)
		if err != nil {
			return nil, err
		}
		attempts, err := h.storage.ListQuizAttempts(ctx, userID, 0)
		if err != nil {
			return nil, err
		}

		trends, velocity := mastery.Trends(attempts)
		return dto.PerformanceResponse{
			UserID:           userID,
			TotalAttempts:    len(attempts),
			Gaps:             topicNames(mastery.Gaps(records)),
			Strengths:        topicNames(mastery.Strengths(records)),
			Trends:           trends,
			LearningVelocity: velocity,
		}, nil
	})
	if err != nil {
		h.logger.Error("Failed to compute performance", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to compute performance",
		})
		return
	}

	c.JSON(http.StatusOK, value)
}

// GetRecommendations handles GET /api/v1/users/:user_id/recommendations
// Results for the default limit are cached; an explicit limit recomputes.
func (h *LearningHandler) GetRecommendations(c *gin.Context) {
	userID := c.Param("user_id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	compute := func() (any, error) {
		recs, err := h.computeRecommendations(c.Request.Context(), userID, limit)
		if err != nil {
			return nil, err
		}
		return dto.RecommendationsResponse{UserID: userID, Recommendations: recs}, nil
	}

	var value any
	var err error
	if limit == 0 || limit == recommend.DefaultLimit {
		key := cache.Key(cache.NamespaceRecommendations, userID)
		value, err = h.cache.GetOrCompute(key, h.cacheTTL.RecommendationsTTL, compute)
	} else {
		value, err = compute()
	}
	if err != nil {
		h.logger.Error("Failed to compute recommendations", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to compute recommendations",
		})
		return
	}

	c.JSON(http.StatusOK, value)
}

// ListAgentDecisions handles GET /api/v1/agent-decisions
func (h *LearningHandler) ListAgentDecisions(c *gin.Context) {
	var req dto.ListDecisionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id is required",
		})
		return
	}

	if req.Limit <= 0 {
		req.Limit = 50
	}

	if req.Limit > 200 {
		req.Limit = 200
	}

	decisions, err := h.storage.ListDecisions(c.Request.Context(), storage.DecisionFilter{
		UserID:       req.UserID,
		AgentName:    req.AgentName,
		DecisionType: req.DecisionType,
		Limit:        req.Limit,
	})
	if err != nil {
		h.logger.Error("Failed to list agent decisions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list agent decisions",
		})
		return
	}

	out := make([]dto.DecisionDTO, len(decisions))
	for i, d := range decisions {
		out[i] = dto.DecisionDTO{
			ID:           d.ID,
			AgentName:    d.AgentName,
			DecisionType: d.DecisionType,
			Reasoning:    d.Reasoning,
			Confidence:   d.Confidence,
			CreatedAt:    d.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, dto.ListDecisionsResponse{Decisions: out})
}

func (h *LearningHandler) computeRecommendations(ctx context.Context, userID string, limit int) ([]domain.Recommendation, error) {
	profile, err := h.storage.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}

	journey, err := h.storage.GetJourney(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := h.storage.GetMastery(ctx, userID)
	if err != nil {
		return nil, err
	}

	return recommend.Recommend(profile, journey, records, limit), nil
}

// invalidate drops local cache entries and broadcasts the invalidation so
// other instances drop theirs. The broadcast is best effort.
func (h *LearningHandler) invalidate(ctx context.Context, userID string, namespaces []string, reason string) {
	for _, ns := range namespaces {
		h.cache.Delete(cache.Key(ns, userID))
	}

	if h.events == nil {
		return
	}
	inv := events.Invalidation{
		UserID:     userID,
		Namespaces: namespaces,
		Reason:     reason,
	}
	if err := h.events.Publish(ctx, inv); err != nil {
		h.logger.Warn("Failed to broadcast cache invalidation",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

func topicNames(records []domain.TopicMastery) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Topic
	}
	return names
}
