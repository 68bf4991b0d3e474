package repository

import (
	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// AttemptRepository определяет методы для работы с попытками
type AttemptRepository interface {
	Create(attempt *entity.Attempt) error
	GetByID(id string) (*entity.Attempt, error)
	Update(attempt *entity.Attempt) error
	// GetCompletedByTest возвращает все финализированные попытки теста.
	// Порядок не гарантируется: полный порядок задает движок ранжирования.
	GetCompletedByTest(testID uint) ([]entity.Attempt, error)
	GetByTestAndUser(testID uint, userID uint) ([]entity.Attempt, error)
	// HasCompletedAttempt проверяет, есть ли у участника финализированная
	// попытка данного теста: по userID для аутентифицированных, по имени —
	// для анонимных.
	HasCompletedAttempt(testID uint, userID *uint, participantName string) (bool, error)
	SetDisqualified(attemptID string, disqualified bool) error
	GetExpiredInProgress(limit int) ([]entity.Attempt, error)
}
