package service

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
	"github.com/yourusername/cbt-api/internal/scoring"
)

// LeaderboardNotifier уведомляет подписчиков об изменении лидерборда теста.
// Реализуется WebSocket-хабом; в тестах и фоновых задачах может быть nil.
type LeaderboardNotifier interface {
	NotifyLeaderboardUpdated(testID uint)
}

// AttemptService управляет жизненным циклом попыток: старт, ответы,
// финализация, истечение лимита времени и модерация.
type AttemptService struct {
	attemptRepo repository.AttemptRepository
	testRepo    repository.TestRepository
	notifier    LeaderboardNotifier
	now         func() time.Time
}

// NewAttemptService создает новый сервис попыток
func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	testRepo repository.TestRepository,
	notifier LeaderboardNotifier,
) *AttemptService {
	return &AttemptService{
		attemptRepo: attemptRepo,
		testRepo:    testRepo,
		notifier:    notifier,
		now:         time.Now,
	}
}

// StartAttempt создает попытку: фиксирует снимок вопросов и лимит времени
// из конфигурации теста на момент старта. Участник — либо аутентифицированный
// пользователь, либо анонимный с именем/почтой.
func (s *AttemptService) StartAttempt(testID uint, userID *uint, participantName string) (*entity.Attempt, error) {
	if userID == nil && participantName == "" {
		return nil, fmt.Errorf("%w: participant name is required for anonymous attempts", apperrors.ErrValidation)
	}

	test, err := s.testRepo.GetWithQuestions(testID)
	if err != nil {
		return nil, err
	}
	if !test.IsPublished() {
		return nil, ErrTestNotPublished
	}
	if len(test.Questions) == 0 {
		// Не даем создать попытку, которую потом нельзя подсчитать
		return nil, ErrTestHasNoQuestions
	}

	// Гейт повторного прохождения: единственный источник — флаг теста
	if !test.AllowsRetake() {
		completed, err := s.attemptRepo.HasCompletedAttempt(testID, userID, participantName)
		if err != nil {
			return nil, err
		}
		if completed {
			return nil, ErrRetakeNotAllowed
		}
	}

	snapshot := make(entity.QuestionSnapshot, 0, len(test.Questions))
	for _, q := range test.Questions {
		snapshot = append(snapshot, entity.SnapshotQuestion{
			QuestionID:    fmt.Sprintf("q-%d", q.ID),
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
		})
	}

	attempt := &entity.Attempt{
		ID:               uuid.NewString(),
		TestID:           testID,
		UserID:           userID,
		ParticipantName:  participantName,
		QuestionSet:      snapshot,
		Answers:          entity.AnswerList{},
		StartedAt:        s.now(),
		TimeLimitSeconds: test.TimeLimitSeconds(),
		Status:           entity.AttemptStatusInProgress,
		TotalQuestions:   len(snapshot),
	}

	if err := s.attemptRepo.Create(attempt); err != nil {
		log.Printf("[AttemptService] Ошибка при создании попытки для теста #%d: %v", testID, err)
		return nil, err
	}

	log.Printf("[AttemptService] Участник %s начал попытку %s теста #%d (%d вопросов, лимит %d сек)",
		attempt.ParticipantKey(), attempt.ID, testID, len(snapshot), attempt.TimeLimitSeconds)
	return attempt, nil
}

// SubmitAnswer сохраняет ответ на вопрос с семантикой перезаписи.
// Если лимит времени уже истек, попытка принудительно финализируется
// с имеющимися ответами, а вызов получает ErrAttemptExpired.
func (s *AttemptService) SubmitAnswer(attemptID string, userID *uint, questionID string, selectedOption int) (*entity.Attempt, error) {
	attempt, err := s.getOwnedAttempt(attemptID, userID)
	if err != nil {
		return nil, err
	}

	if !attempt.IsInProgress() {
		return nil, fmt.Errorf("%w: attempt is %s", apperrors.ErrConflict, attempt.Status)
	}

	if attempt.IsExpired(s.now()) {
		if _, err := s.finalize(attempt); err != nil {
			return nil, err
		}
		return nil, ErrAttemptExpired
	}

	if err := attempt.RecordAnswer(questionID, selectedOption); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	if err := s.attemptRepo.Update(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// FinalizeAttempt завершает попытку: подсчитывает результат движком,
// кеширует счет на записи и делает ее неизменяемой. Повторная финализация
// уже завершенной попытки — конфликт состояния.
func (s *AttemptService) FinalizeAttempt(attemptID string, userID *uint) (*entity.Attempt, error) {
	attempt, err := s.getOwnedAttempt(attemptID, userID)
	if err != nil {
		return nil, err
	}

	if !attempt.IsInProgress() {
		return nil, fmt.Errorf("%w: attempt is already %s", apperrors.ErrConflict, attempt.Status)
	}

	return s.finalize(attempt)
}

// finalize выполняет собственно финализацию: единая точка и для явной
// отправки, и для истечения лимита времени.
func (s *AttemptService) finalize(attempt *entity.Attempt) (*entity.Attempt, error) {
	result, err := scoring.Score(attempt.ScoringQuestions(), attempt.ScoringAnswers())
	if err != nil {
		// Пустой набор вопросов: попытка не может быть подсчитана и
		// не должна отображаться как 0%
		log.Printf("[AttemptService] Попытка %s не может быть подсчитана: %v", attempt.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrUnscorable, err)
	}

	now := s.now()
	completedAt := now
	if expiry := attempt.ExpiresAt(); now.After(expiry) {
		// При принудительной финализации временем завершения считается дедлайн
		completedAt = expiry
	}

	attempt.Status = entity.AttemptStatusCompleted
	attempt.CompletedAt = &completedAt
	attempt.Score = result.CorrectCount
	attempt.TotalQuestions = result.TotalQuestions
	attempt.Percentage = result.Percentage
	attempt.TimeTakenSeconds = attempt.TimeTaken(completedAt)
	attempt.Review = reviewFromResult(result)

	if err := s.attemptRepo.Update(attempt); err != nil {
		log.Printf("[AttemptService] Ошибка при сохранении финализированной попытки %s: %v", attempt.ID, err)
		return nil, err
	}

	log.Printf("[AttemptService] Попытка %s финализирована: %d/%d (%d%%) за %d сек",
		attempt.ID, attempt.Score, attempt.TotalQuestions, attempt.Percentage, attempt.TimeTakenSeconds)

	if s.notifier != nil {
		s.notifier.NotifyLeaderboardUpdated(attempt.TestID)
	}
	return attempt, nil
}

// AbandonAttempt помечает идущую попытку брошенной.
// Брошенные попытки в лидерборд не попадают.
func (s *AttemptService) AbandonAttempt(attemptID string, userID *uint) error {
	attempt, err := s.getOwnedAttempt(attemptID, userID)
	if err != nil {
		return err
	}
	if !attempt.IsInProgress() {
		return fmt.Errorf("%w: attempt is %s", apperrors.ErrConflict, attempt.Status)
	}

	attempt.Status = entity.AttemptStatusAbandoned
	return s.attemptRepo.Update(attempt)
}

// GetAttempt возвращает попытку. Истекшая идущая попытка по пути
// финализируется: чтение не должно показывать просроченный in_progress.
func (s *AttemptService) GetAttempt(attemptID string, userID *uint) (*entity.Attempt, error) {
	attempt, err := s.getOwnedAttempt(attemptID, userID)
	if err != nil {
		return nil, err
	}

	if attempt.IsInProgress() && attempt.IsExpired(s.now()) {
		return s.finalize(attempt)
	}
	return attempt, nil
}

// SetDisqualified выставляет или снимает флаг дисквалификации.
// Действие модерации: допустимо только для финализированных попыток,
// счет и ответы не изменяются, лидерборд пересчитывается целиком.
func (s *AttemptService) SetDisqualified(attemptID string, disqualified bool) error {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return err
	}

	if err := s.attemptRepo.SetDisqualified(attemptID, disqualified); err != nil {
		return err
	}

	log.Printf("[AttemptService] Попытка %s: disqualified=%t (модерация)", attemptID, disqualified)
	if s.notifier != nil {
		s.notifier.NotifyLeaderboardUpdated(attempt.TestID)
	}
	return nil
}

// FinalizeExpiredAttempts финализирует идущие попытки с истекшим лимитом.
// Вызывается периодической фоновой задачей.
func (s *AttemptService) FinalizeExpiredAttempts(batchSize int) (int, error) {
	expired, err := s.attemptRepo.GetExpiredInProgress(batchSize)
	if err != nil {
		return 0, err
	}

	finalized := 0
	for i := range expired {
		if _, err := s.finalize(&expired[i]); err != nil {
			log.Printf("[AttemptService] Ошибка автофинализации попытки %s: %v", expired[i].ID, err)
			continue
		}
		finalized++
	}

	if finalized > 0 {
		log.Printf("[AttemptService] Автофинализировано %d истекших попыток", finalized)
	}
	return finalized, nil
}

// getOwnedAttempt загружает попытку и проверяет владение.
// Анонимные попытки доступны без проверки (владельца у них нет).
func (s *AttemptService) getOwnedAttempt(attemptID string, userID *uint) (*entity.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != nil {
		if userID == nil || !attempt.OwnedBy(*userID) {
			return nil, apperrors.ErrForbidden
		}
	}
	return attempt, nil
}

// reviewFromResult переводит разбор движка в хранимый формат
func reviewFromResult(result *scoring.ScoreResult) entity.ReviewList {
	review := make(entity.ReviewList, 0, len(result.PerQuestion))
	for _, qr := range result.PerQuestion {
		review = append(review, entity.AnswerReview{
			QuestionID:     qr.QuestionID,
			SelectedOption: qr.SelectedOption,
			IsCorrect:      qr.IsCorrect,
		})
	}
	return review
}
