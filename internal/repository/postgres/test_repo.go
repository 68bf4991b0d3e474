package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// TestRepo реализует repository.TestRepository
type TestRepo struct {
	db *gorm.DB
}

// NewTestRepo создает новый репозиторий тестов
func NewTestRepo(db *gorm.DB) *TestRepo {
	return &TestRepo{db: db}
}

// Create сохраняет тест вместе с вопросами
func (r *TestRepo) Create(test *entity.Test) error {
	return r.db.Create(test).Error
}

// GetByID возвращает тест по ID без вопросов
func (r *TestRepo) GetByID(id uint) (*entity.Test, error) {
	var test entity.Test
	err := r.db.First(&test, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &test, nil
}

// GetWithQuestions возвращает тест вместе с вопросами в порядке позиций
func (r *TestRepo) GetWithQuestions(id uint) (*entity.Test, error) {
	var test entity.Test
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC, id ASC")
	}).First(&test, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &test, nil
}

// List возвращает тесты с пагинацией и общим количеством
func (r *TestRepo) List(limit, offset int) ([]entity.Test, int64, error) {
	return r.list(r.db.Model(&entity.Test{}), limit, offset)
}

// ListBySubject возвращает тесты по предмету с пагинацией
func (r *TestRepo) ListBySubject(subject string, limit, offset int) ([]entity.Test, int64, error) {
	return r.list(r.db.Model(&entity.Test{}).Where("subject = ?", subject), limit, offset)
}

func (r *TestRepo) list(query *gorm.DB, limit, offset int) ([]entity.Test, int64, error) {
	var tests []entity.Test
	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tests).Error
	if err != nil {
		return nil, 0, err
	}

	return tests, total, nil
}

// UpdateStatus меняет статус теста
func (r *TestRepo) UpdateStatus(id uint, status string) error {
	result := r.db.Model(&entity.Test{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
