package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockAttemptRepo реализует repository.AttemptRepository
type MockAttemptRepo struct {
	mock.Mock
}

func (m *MockAttemptRepo) Create(attempt *entity.Attempt) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepo) GetByID(id string) (*entity.Attempt, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Attempt), args.Error(1)
}

func (m *MockAttemptRepo) Update(attempt *entity.Attempt) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepo) GetCompletedByTest(testID uint) ([]entity.Attempt, error) {
	args := m.Called(testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Attempt), args.Error(1)
}

func (m *MockAttemptRepo) GetByTestAndUser(testID uint, userID uint) ([]entity.Attempt, error) {
	args := m.Called(testID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Attempt), args.Error(1)
}

func (m *MockAttemptRepo) HasCompletedAttempt(testID uint, userID *uint, participantName string) (bool, error) {
	args := m.Called(testID, userID, participantName)
	return args.Bool(0), args.Error(1)
}

func (m *MockAttemptRepo) SetDisqualified(attemptID string, disqualified bool) error {
	args := m.Called(attemptID, disqualified)
	return args.Error(0)
}

func (m *MockAttemptRepo) GetExpiredInProgress(limit int) ([]entity.Attempt, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Attempt), args.Error(1)
}

// MockTestRepo реализует repository.TestRepository
type MockTestRepo struct {
	mock.Mock
}

func (m *MockTestRepo) Create(test *entity.Test) error {
	args := m.Called(test)
	return args.Error(0)
}

func (m *MockTestRepo) GetByID(id uint) (*entity.Test, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Test), args.Error(1)
}

func (m *MockTestRepo) GetWithQuestions(id uint) (*entity.Test, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Test), args.Error(1)
}

func (m *MockTestRepo) List(limit, offset int) ([]entity.Test, int64, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Test), args.Get(1).(int64), args.Error(2)
}

func (m *MockTestRepo) ListBySubject(subject string, limit, offset int) ([]entity.Test, int64, error) {
	args := m.Called(subject, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Test), args.Get(1).(int64), args.Error(2)
}

func (m *MockTestRepo) UpdateStatus(id uint, status string) error {
	args := m.Called(id, status)
	return args.Error(0)
}

// MockNotifier реализует LeaderboardNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyLeaderboardUpdated(testID uint) {
	m.Called(testID)
}

// ============================================================================
// Вспомогательные конструкторы
// ============================================================================

var attemptTestBase = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func createTestAttemptService(attemptRepo *MockAttemptRepo, testRepo *MockTestRepo, notifier *MockNotifier, now time.Time) *AttemptService {
	svc := &AttemptService{
		attemptRepo: attemptRepo,
		testRepo:    testRepo,
		now:         func() time.Time { return now },
	}
	if notifier != nil {
		svc.notifier = notifier
	}
	return svc
}

func publishedTest() *entity.Test {
	return &entity.Test{
		ID:               1,
		Title:            "Алгебра: производные",
		TimeLimitMinutes: 10,
		AllowRetakes:     false,
		Status:           entity.TestStatusPublished,
		Questions: []entity.Question{
			{ID: 11, TestID: 1, Text: "2+2?", Options: entity.StringArray{"3", "4"}, CorrectOption: 1},
			{ID: 12, TestID: 1, Text: "3*3?", Options: entity.StringArray{"9", "6"}, CorrectOption: 0},
		},
	}
}

func inProgressAttempt(userID *uint) *entity.Attempt {
	return &entity.Attempt{
		ID:     "11111111-1111-1111-1111-111111111111",
		TestID: 1,
		UserID: userID,
		QuestionSet: entity.QuestionSnapshot{
			{QuestionID: "q-11", Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1},
			{QuestionID: "q-12", Text: "3*3?", Options: []string{"9", "6"}, CorrectOption: 0},
		},
		Answers:          entity.AnswerList{},
		StartedAt:        attemptTestBase,
		TimeLimitSeconds: 600,
		Status:           entity.AttemptStatusInProgress,
		TotalQuestions:   2,
	}
}

// ============================================================================
// Тесты StartAttempt
// ============================================================================

func TestAttemptService_StartAttempt_SnapshotsQuestionsAndPinsLimit(t *testing.T) {
	// Arrange
	attemptRepo := new(MockAttemptRepo)
	testRepo := new(MockTestRepo)
	testRepo.On("GetWithQuestions", uint(1)).Return(publishedTest(), nil)
	attemptRepo.On("HasCompletedAttempt", uint(1), (*uint)(nil), "Айгерим").Return(false, nil)
	attemptRepo.On("Create", mock.AnythingOfType("*entity.Attempt")).Return(nil)

	svc := createTestAttemptService(attemptRepo, testRepo, nil, attemptTestBase)

	// Act
	attempt, err := svc.StartAttempt(1, nil, "Айгерим")

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, attempt.ID, "Попытка должна получить UUID")
	assert.Equal(t, entity.AttemptStatusInProgress, attempt.Status)
	assert.Equal(t, 600, attempt.TimeLimitSeconds, "Лимит теста (10 минут) фиксируется в секундах на момент старта")
	require.Len(t, attempt.QuestionSet, 2, "Снимок должен содержать все вопросы теста")
	assert.Equal(t, "q-11", attempt.QuestionSet[0].QuestionID)
	assert.Equal(t, 1, attempt.QuestionSet[0].CorrectOption)
	attemptRepo.AssertExpectations(t)
}

func TestAttemptService_StartAttempt_RetakeBlockedByTestFlag(t *testing.T) {
	// Arrange: повторные прохождения запрещены, попытка уже есть
	attemptRepo := new(MockAttemptRepo)
	testRepo := new(MockTestRepo)
	userID := uint(5)
	testRepo.On("GetWithQuestions", uint(1)).Return(publishedTest(), nil)
	attemptRepo.On("HasCompletedAttempt", uint(1), &userID, "").Return(true, nil)

	svc := createTestAttemptService(attemptRepo, testRepo, nil, attemptTestBase)

	// Act
	_, err := svc.StartAttempt(1, &userID, "")

	// Assert
	assert.ErrorIs(t, err, ErrRetakeNotAllowed, "Гейт повторного прохождения — флаг конфигурации теста")
	attemptRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAttemptService_StartAttempt_RetakeAllowedSkipsGate(t *testing.T) {
	// Arrange: AllowRetakes=true — проверка прошлых попыток не выполняется
	attemptRepo := new(MockAttemptRepo)
	testRepo := new(MockTestRepo)
	test := publishedTest()
	test.AllowRetakes = true
	userID := uint(5)
	testRepo.On("GetWithQuestions", uint(1)).Return(test, nil)
	attemptRepo.On("Create", mock.AnythingOfType("*entity.Attempt")).Return(nil)

	svc := createTestAttemptService(attemptRepo, testRepo, nil, attemptTestBase)

	// Act
	_, err := svc.StartAttempt(1, &userID, "")

	// Assert
	require.NoError(t, err)
	attemptRepo.AssertNotCalled(t, "HasCompletedAttempt", mock.Anything, mock.Anything, mock.Anything)
}

func TestAttemptService_StartAttempt_EmptyTestRejected(t *testing.T) {
	// Arrange: тест без вопросов нельзя начать
	attemptRepo := new(MockAttemptRepo)
	testRepo := new(MockTestRepo)
	test := publishedTest()
	test.Questions = nil
	testRepo.On("GetWithQuestions", uint(1)).Return(test, nil)

	svc := createTestAttemptService(attemptRepo, testRepo, nil, attemptTestBase)

	// Act
	_, err := svc.StartAttempt(1, nil, "Айгерим")

	// Assert: пустой набор отклоняется до создания попытки
	assert.ErrorIs(t, err, ErrTestHasNoQuestions)
}

func TestAttemptService_StartAttempt_AnonymousNeedsName(t *testing.T) {
	svc := createTestAttemptService(new(MockAttemptRepo), new(MockTestRepo), nil, attemptTestBase)

	_, err := svc.StartAttempt(1, nil, "")

	assert.ErrorIs(t, err, apperrors.ErrValidation, "Анонимная попытка без имени отклоняется")
}

// ============================================================================
// Тесты SubmitAnswer / FinalizeAttempt
// ============================================================================

func TestAttemptService_SubmitAnswer_OverwritesAndPersists(t *testing.T) {
	// Arrange
	attemptRepo := new(MockAttemptRepo)
	attempt := inProgressAttempt(nil)
	attemptRepo.On("GetByID", attempt.ID).Return(attempt, nil)
	attemptRepo.On("Update", attempt).Return(nil)

	svc := createTestAttemptService(attemptRepo, new(MockTestRepo), nil, attemptTestBase.Add(time.Minute))

	// Act
	updated, err := svc.SubmitAnswer(attempt.ID, nil, "q-11", 1)

	// Assert
	require.NoError(t, err)
	require.Len(t, updated.Answers, 1)
	assert.Equal(t, 1, updated.Answers[0].SelectedOption)
	attemptRepo.AssertExpectations(t)
}

func TestAttemptService_SubmitAnswer_AfterExpiryForcesFinalization(t *testing.T) {
	// Arrange: ответ приходит после дедлайна
	attemptRepo := new(MockAttemptRepo)
	attempt := inProgressAttempt(nil)
	require.NoError(t, attempt.RecordAnswer("q-11", 1)) // ответ, данный до истечения
	attemptRepo.On("GetByID", attempt.ID).Return(attempt, nil)
	attemptRepo.On("Update", attempt).Return(nil)

	svc := createTestAttemptService(attemptRepo, new(MockTestRepo), nil, attemptTestBase.Add(11*time.Minute))

	// Act
	_, err := svc.SubmitAnswer(attempt.ID, nil, "q-12", 0)

	// Assert: попытка финализирована с имеющимися ответами, новый отброшен
	require.ErrorIs(t, err, ErrAttemptExpired)
	assert.Equal(t, entity.AttemptStatusCompleted, attempt.Status)
	assert.Equal(t, 1, attempt.Score, "Засчитан только ответ, данный до истечения")
	assert.Len(t, attempt.Answers, 1, "Ответ после дедлайна не принимается")
	assert.Equal(t, 600, attempt.TimeTakenSeconds, "Затраченное время ограничено лимитом")
}

func TestAttemptService_SubmitAnswer_ForbiddenForNonOwner(t *testing.T) {
	// Arrange
	attemptRepo := new(MockAttemptRepo)
	ownerID := uint(5)
	attempt := inProgressAttempt(&ownerID)
	attemptRepo.On("GetByID", attempt.ID).Return(attempt, nil)

	svc := createTestAttemptService(attemptRepo, new(MockTestRepo), nil, attemptTestBase)

	// Act: чужой пользователь
	strangerID := uint(6)
	_, err := svc.SubmitAnswer(attempt.ID, &strangerID, "q-11", 1)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "Мутация попытки разрешена только владельцу")
}

func TestAttemptService_FinalizeAttempt_CachesScoreAndNotifies(t *testing.T) {
	// Arrange
	attemptRepo := new(MockAttemptRepo)
	notifier := new(MockNotifier)
	attempt := inProgressAttempt(nil)
	require.NoError(t, attempt.RecordAnswer("q-11", 1)) // правильный
	require.NoError(t, attempt.RecordAnswer("q-12", 1)) // неправильный
	attemptRepo.On("GetByID", attempt.ID).Return(attempt, nil)
	attemptRepo.On("Update", attempt).Return(nil)
	notifier.On("NotifyLeaderboardUpdated", uint(1)).Return()

	completedAt := attemptTestBase.Add(7 * time.Minute)
	svc := createTestAttemptService(attemptRepo, new(MockTestRepo), notifier, completedAt)

	// Act
	finalized, err := svc.FinalizeAttempt(attempt.ID, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.AttemptStatusCompleted, finalized.Status)
	assert.Equal(t, 1, finalized.Score)
	assert.Equal(t, 2, finalized.TotalQuestions)
	assert.Equal(t, 50, finalized.Percentage)
	assert.Equal(t, 420, finalized.TimeTakenSeconds, "7 минут внутри лимита")
	require.NotNil(t, finalized.CompletedAt)
	assert.Equal(t, completedAt, *finalized.CompletedAt)
	require.Len(t, finalized.Review, 2, "Разбор кешируется при финализации")
	assert.True(t, finalized.Review[0].IsCorrect)
	assert.False(t, finalized.Review[1].IsCorrect)
	notifier.AssertExpectations(t)
}

func TestAttemptService_FinalizeAttempt_SecondFinalizationConflicts(t *testing.T) {
	// Arrange: попытка уже завершена
	attemptRepo := new(MockAttemptRepo)
	attempt := inProgressAttempt(nil)
	attempt.Status = entity.AttemptStatusCompleted
	attemptRepo.On("GetByID", attempt.ID).Return(attempt, nil)

	svc := createTestAttemptService(attemptRepo, new(MockTestRepo), nil, attemptTestBase)

	// Act
	_, err := svc.FinalizeAttempt(attempt.ID, nil)

	// Assert: финализация выполняется ровно один раз
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	attemptRepo.AssertNotCalled(t, "Update", mock.Anything)
}

func TestAttemptService_GetAttempt_AutoFinalizesExpired(t *testing.T) {
	// Arrange: чтение просроченной идущей попытки
	attemptRepo := new(MockAttemptRepo)
	attempt := inProgressAttempt(nil)
	attemptRepo.On("GetByID", attempt.ID).Return(attempt, nil)
	attemptRepo.On("Update", attempt).Return(nil)

	svc := createTestAttemptService(attemptRepo, new(MockTestRepo), nil, attemptTestBase.Add(time.Hour))

	// Act
	got, err := svc.GetAttempt(attempt.ID, nil)

	// Assert: просроченный in_progress наружу не отдается
	require.NoError(t, err)
	assert.Equal(t, entity.AttemptStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, attempt.ExpiresAt(), *got.CompletedAt,
		"Временем завершения принудительной финализации считается дедлайн")
}

// ============================================================================
// Тесты модерации
// ============================================================================

func TestAttemptService_SetDisqualified_NotifiesLeaderboard(t *testing.T) {
	// Arrange
	attemptRepo := new(MockAttemptRepo)
	notifier := new(MockNotifier)
	attempt := inProgressAttempt(nil)
	attempt.Status = entity.AttemptStatusCompleted
	attemptRepo.On("GetByID", attempt.ID).Return(attempt, nil)
	attemptRepo.On("SetDisqualified", attempt.ID, true).Return(nil)
	notifier.On("NotifyLeaderboardUpdated", uint(1)).Return()

	svc := createTestAttemptService(attemptRepo, new(MockTestRepo), notifier, attemptTestBase)

	// Act
	err := svc.SetDisqualified(attempt.ID, true)

	// Assert
	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestAttemptService_FinalizeExpiredAttempts(t *testing.T) {
	// Arrange: две просроченные попытки в батче
	attemptRepo := new(MockAttemptRepo)
	first := inProgressAttempt(nil)
	second := inProgressAttempt(nil)
	second.ID = "22222222-2222-2222-2222-222222222222"
	attemptRepo.On("GetExpiredInProgress", 100).Return([]entity.Attempt{*first, *second}, nil)
	attemptRepo.On("Update", mock.AnythingOfType("*entity.Attempt")).Return(nil)

	svc := createTestAttemptService(attemptRepo, new(MockTestRepo), nil, attemptTestBase.Add(time.Hour))

	// Act
	finalized, err := svc.FinalizeExpiredAttempts(100)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, finalized)
	attemptRepo.AssertNumberOfCalls(t, "Update", 2)
}
