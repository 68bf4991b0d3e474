package service

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// TestService предоставляет методы для работы с тестами
type TestService struct {
	testRepo     repository.TestRepository
	questionRepo repository.QuestionRepository
}

// NewTestService создает новый сервис тестов
func NewTestService(
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
) *TestService {
	return &TestService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
	}
}

// CreateTest создает тест с вопросами. Каждый вопрос валидируется здесь,
// на этапе приема: вопрос с индексом правильного ответа вне диапазона —
// ошибка создания, до подсчета такие данные не доходят.
func (s *TestService) CreateTest(test *entity.Test) (*entity.Test, error) {
	if test.Title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	if test.TimeLimitMinutes <= 0 {
		return nil, fmt.Errorf("%w: time limit must be positive", apperrors.ErrValidation)
	}

	for i := range test.Questions {
		test.Questions[i].Position = i
		if err := test.Questions[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", apperrors.ErrValidation, i+1, err)
		}
	}

	if test.Status == "" {
		test.Status = entity.TestStatusDraft
	}

	if err := s.testRepo.Create(test); err != nil {
		log.Printf("[TestService] Ошибка при создании теста %q: %v", test.Title, err)
		return nil, err
	}

	log.Printf("[TestService] Создан тест #%d %q с %d вопросами", test.ID, test.Title, len(test.Questions))
	return test, nil
}

// GetTest возвращает тест по ID
func (s *TestService) GetTest(id uint) (*entity.Test, error) {
	return s.testRepo.GetByID(id)
}

// GetTestWithQuestions возвращает тест вместе с вопросами
func (s *TestService) GetTestWithQuestions(id uint) (*entity.Test, error) {
	return s.testRepo.GetWithQuestions(id)
}

// ListTests возвращает тесты с пагинацией; subject фильтрует по предмету
func (s *TestService) ListTests(subject string, page, pageSize int) ([]entity.Test, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	} else if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	if subject != "" {
		return s.testRepo.ListBySubject(subject, pageSize, offset)
	}
	return s.testRepo.List(pageSize, offset)
}

// PublishTest переводит тест в статус published.
// Тест без вопросов опубликовать нельзя: его попытки были бы неподсчитываемы.
func (s *TestService) PublishTest(id uint) error {
	count, err := s.questionRepo.CountByTestID(id)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: cannot publish a test without questions", apperrors.ErrValidation)
	}
	return s.testRepo.UpdateStatus(id, entity.TestStatusPublished)
}

// ArchiveTest переводит тест в статус archived
func (s *TestService) ArchiveTest(id uint) error {
	return s.testRepo.UpdateStatus(id, entity.TestStatusArchived)
}

// AddQuestions валидирует и добавляет вопросы к существующему тесту
func (s *TestService) AddQuestions(testID uint, questions []entity.Question) error {
	if _, err := s.testRepo.GetByID(testID); err != nil {
		return err
	}

	existing, err := s.questionRepo.CountByTestID(testID)
	if err != nil {
		return err
	}

	for i := range questions {
		questions[i].Position = int(existing) + i
		if err := questions[i].Validate(); err != nil {
			return fmt.Errorf("%w: question %d: %v", apperrors.ErrValidation, i+1, err)
		}
	}

	return s.questionRepo.AddQuestions(testID, questions)
}

// ImportQuestionsFromExcel читает вопросы из XLSX-файла и добавляет их к тесту.
// Ожидаемые колонки первого листа: текст вопроса, варианты через "|",
// индекс правильного ответа (с нуля), пояснение (опционально).
// Первая строка считается заголовком и пропускается.
func (s *TestService) ImportQuestionsFromExcel(testID uint, reader io.Reader) (int, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to open xlsx: %v", apperrors.ErrValidation, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Printf("[TestService] Ошибка закрытия xlsx: %v", cerr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("%w: xlsx has no sheets", apperrors.ErrValidation)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read sheet %q: %v", apperrors.ErrValidation, sheets[0], err)
	}

	questions := make([]entity.Question, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // заголовок
		}
		if len(row) < 3 {
			return 0, fmt.Errorf("%w: row %d: expected at least 3 columns (text, options, correct index)", apperrors.ErrValidation, i+1)
		}

		options := splitOptions(row[1])
		correct, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return 0, fmt.Errorf("%w: row %d: invalid correct option index %q", apperrors.ErrValidation, i+1, row[2])
		}

		question := entity.Question{
			Text:          strings.TrimSpace(row[0]),
			Options:       options,
			CorrectOption: correct,
		}
		if len(row) > 3 {
			question.Explanation = strings.TrimSpace(row[3])
		}
		questions = append(questions, question)
	}

	if len(questions) == 0 {
		return 0, fmt.Errorf("%w: xlsx contains no question rows", apperrors.ErrValidation)
	}

	if err := s.AddQuestions(testID, questions); err != nil {
		return 0, err
	}

	log.Printf("[TestService] Импортировано %d вопросов в тест #%d", len(questions), testID)
	return len(questions), nil
}

// splitOptions разбирает колонку вариантов, разделенных "|"
func splitOptions(raw string) entity.StringArray {
	parts := strings.Split(raw, "|")
	options := make(entity.StringArray, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			options = append(options, trimmed)
		}
	}
	return options
}
