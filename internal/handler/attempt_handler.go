package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/cbt-api/internal/handler/dto"
	"github.com/yourusername/cbt-api/internal/middleware"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
	"github.com/yourusername/cbt-api/internal/service"
)

// AttemptHandler обрабатывает запросы жизненного цикла попыток
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// StartAttemptRequest представляет запрос на старт попытки.
// ParticipantName обязателен для анонимных участников.
type StartAttemptRequest struct {
	TestID          uint   `json:"test_id" binding:"required"`
	ParticipantName string `json:"participant_name" binding:"omitempty,min=1,max=100"`
}

// StartAttempt начинает попытку прохождения теста
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	var req StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserIDFromContext(c)
	attempt, err := h.attemptService.StartAttempt(req.TestID, userID, req.ParticipantName)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAttemptResponse(attempt))
}

// GetAttempt возвращает попытку
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)

	attempt, err := h.attemptService.GetAttempt(attemptID, middleware.UserIDFromContext(c))
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// SubmitAnswerRequest представляет запрос на сохранение ответа.
// SelectedOption = -1 снимает ранее данный ответ.
type SubmitAnswerRequest struct {
	QuestionID     string `json:"question_id" binding:"required"`
	SelectedOption int    `json:"selected_option" binding:"min=-1"`
}

// SubmitAnswer сохраняет ответ на вопрос попытки
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attempt, err := h.attemptService.SubmitAnswer(attemptID, middleware.UserIDFromContext(c), req.QuestionID, req.SelectedOption)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// FinalizeAttempt завершает попытку и возвращает результат с разбором
func (h *AttemptHandler) FinalizeAttempt(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)

	attempt, err := h.attemptService.FinalizeAttempt(attemptID, middleware.UserIDFromContext(c))
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// AbandonAttempt помечает попытку брошенной
func (h *AttemptHandler) AbandonAttempt(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)

	if err := h.attemptService.AbandonAttempt(attemptID, middleware.UserIDFromContext(c)); err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attempt abandoned"})
}

// SetDisqualifiedRequest представляет запрос модерации
type SetDisqualifiedRequest struct {
	Disqualified *bool `json:"disqualified" binding:"required"`
}

// SetDisqualified выставляет или снимает флаг дисквалификации (модерация)
func (h *AttemptHandler) SetDisqualified(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)

	var req SetDisqualifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.attemptService.SetDisqualified(attemptID, *req.Disqualified); err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attempt moderation updated", "disqualified": *req.Disqualified})
}

// handleAttemptError преобразует ошибки сервисов в HTTP-статусы
func (h *AttemptHandler) handleAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTestNotPublished),
		errors.Is(err, service.ErrTestHasNoQuestions):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRetakeNotAllowed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "retake_not_allowed"})
	case errors.Is(err, service.ErrAttemptExpired):
		// Попытка уже финализирована с имеющимися ответами
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "attempt_expired"})
	case errors.Is(err, service.ErrUnscorable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: Internal server error in AttemptHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
