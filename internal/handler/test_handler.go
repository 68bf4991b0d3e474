package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/handler/dto"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
	"github.com/yourusername/cbt-api/internal/service"
)

// TestHandler обрабатывает запросы, связанные с тестами
type TestHandler struct {
	testService *service.TestService
}

// NewTestHandler создает новый обработчик тестов
func NewTestHandler(testService *service.TestService) *TestHandler {
	return &TestHandler{testService: testService}
}

// QuestionRequest представляет вопрос в запросе на создание
type QuestionRequest struct {
	Text          string   `json:"text" binding:"required,max=2000"`
	Options       []string `json:"options" binding:"required,min=2"`
	CorrectOption int      `json:"correct_option"`
	Explanation   string   `json:"explanation" binding:"omitempty,max=2000"`
}

// CreateTestRequest представляет запрос на создание теста
type CreateTestRequest struct {
	Title            string            `json:"title" binding:"required,min=3,max=100"`
	Description      string            `json:"description" binding:"omitempty,max=500"`
	Subject          string            `json:"subject" binding:"omitempty,max=50"`
	Difficulty       string            `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	TimeLimitMinutes int               `json:"time_limit_minutes" binding:"required,min=1,max=600"`
	AllowRetakes     bool              `json:"allow_retakes"`
	Questions        []QuestionRequest `json:"questions" binding:"omitempty,dive"`
}

// CreateTest обрабатывает запрос на создание теста
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	test := &entity.Test{
		Title:            req.Title,
		Description:      req.Description,
		Subject:          req.Subject,
		Difficulty:       req.Difficulty,
		TimeLimitMinutes: req.TimeLimitMinutes,
		AllowRetakes:     req.AllowRetakes,
		CreatedBy:        c.MustGet("userID").(uint),
	}
	for _, q := range req.Questions {
		test.Questions = append(test.Questions, entity.Question{
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
		})
	}

	created, err := h.testService.CreateTest(test)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewTestResponse(created, false))
}

// GetTest возвращает информацию о тесте
func (h *TestHandler) GetTest(c *gin.Context) {
	testID := c.MustGet("testID").(uint) // Получаем из контекста

	test, err := h.testService.GetTest(testID)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTestResponse(test, false))
}

// GetTestWithQuestions возвращает тест вместе с вопросами (без правильных ответов)
func (h *TestHandler) GetTestWithQuestions(c *gin.Context) {
	testID := c.MustGet("testID").(uint)

	test, err := h.testService.GetTestWithQuestions(testID)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTestResponse(test, true))
}

// ListTests возвращает список тестов с пагинацией
func (h *TestHandler) ListTests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	subject := c.Query("subject")

	tests, total, err := h.testService.ListTests(subject, page, pageSize)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedTestResponse(tests, total, page, pageSize))
}

// PublishTest переводит тест в статус published
func (h *TestHandler) PublishTest(c *gin.Context) {
	testID := c.MustGet("testID").(uint)

	if err := h.testService.PublishTest(testID); err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Test published"})
}

// ArchiveTest переводит тест в статус archived
func (h *TestHandler) ArchiveTest(c *gin.Context) {
	testID := c.MustGet("testID").(uint)

	if err := h.testService.ArchiveTest(testID); err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Test archived"})
}

// AddQuestionsRequest представляет запрос на добавление вопросов
type AddQuestionsRequest struct {
	Questions []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// AddQuestions добавляет вопросы к существующему тесту
func (h *TestHandler) AddQuestions(c *gin.Context) {
	testID := c.MustGet("testID").(uint)

	var req AddQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions := make([]entity.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, entity.Question{
			TestID:        testID,
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
		})
	}

	if err := h.testService.AddQuestions(testID, questions); err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Questions added", "count": len(questions)})
}

// ImportQuestions импортирует вопросы из XLSX-файла
func (h *TestHandler) ImportQuestions(c *gin.Context) {
	testID := c.MustGet("testID").(uint)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required (multipart field 'file')"})
		return
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			log.Printf("[TestHandler] Ошибка закрытия файла импорта: %v", cerr)
		}
	}()

	imported, err := h.testService.ImportQuestionsFromExcel(testID, file)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Questions imported", "count": imported})
}

// handleTestError преобразует ошибки сервисов в HTTP-статусы
func (h *TestHandler) handleTestError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in TestHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
