package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create сохраняет новую попытку
func (r *AttemptRepo) Create(attempt *entity.Attempt) error {
	return r.db.Create(attempt).Error
}

// GetByID возвращает попытку по ID
func (r *AttemptRepo) GetByID(id string) (*entity.Attempt, error) {
	var attempt entity.Attempt
	err := r.db.First(&attempt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// Update сохраняет изменения попытки целиком
func (r *AttemptRepo) Update(attempt *entity.Attempt) error {
	return r.db.Save(attempt).Error
}

// GetCompletedByTest возвращает все финализированные попытки теста.
// Сортировка здесь не нужна: полный порядок задает движок ранжирования.
func (r *AttemptRepo) GetCompletedByTest(testID uint) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.Where("test_id = ? AND status = ?", testID, entity.AttemptStatusCompleted).
		Find(&attempts).Error
	return attempts, err
}

// GetByTestAndUser возвращает попытки пользователя для теста
func (r *AttemptRepo) GetByTestAndUser(testID uint, userID uint) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.Where("test_id = ? AND user_id = ?", testID, userID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// HasCompletedAttempt проверяет наличие финализированной попытки участника
func (r *AttemptRepo) HasCompletedAttempt(testID uint, userID *uint, participantName string) (bool, error) {
	query := r.db.Model(&entity.Attempt{}).
		Where("test_id = ? AND status = ?", testID, entity.AttemptStatusCompleted)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	} else {
		query = query.Where("user_id IS NULL AND participant_name = ?", participantName)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetDisqualified выставляет флаг дисквалификации на финализированной попытке.
// Единственная разрешенная мутация после финализации; счет и ответы не трогаются.
func (r *AttemptRepo) SetDisqualified(attemptID string, disqualified bool) error {
	result := r.db.Model(&entity.Attempt{}).
		Where("id = ? AND status = ?", attemptID, entity.AttemptStatusCompleted).
		Update("disqualified", disqualified)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Либо попытки нет, либо она не завершена — различаем для вызывающего
		var count int64
		if err := r.db.Model(&entity.Attempt{}).Where("id = ?", attemptID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.ErrNotFound
		}
		return apperrors.ErrConflict
	}
	return nil
}

// GetExpiredInProgress возвращает идущие попытки с истекшим лимитом времени.
// Используется фоновой финализацией.
func (r *AttemptRepo) GetExpiredInProgress(limit int) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.Where(
		"status = ? AND started_at + make_interval(secs => time_limit_seconds) <= NOW()",
		entity.AttemptStatusInProgress,
	).Limit(limit).Find(&attempts).Error
	return attempts, err
}
