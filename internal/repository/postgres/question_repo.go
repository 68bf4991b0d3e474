package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// AddQuestions добавляет вопросы к тесту одной транзакцией
func (r *QuestionRepo) AddQuestions(testID uint, questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	for i := range questions {
		questions[i].TestID = testID
	}
	return r.db.Create(&questions).Error
}

// GetByTestID возвращает вопросы теста в порядке позиций
func (r *QuestionRepo) GetByTestID(testID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("test_id = ?", testID).
		Order("position ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

// CountByTestID возвращает количество вопросов теста
func (r *QuestionRepo) CountByTestID(testID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Question{}).Where("test_id = ?", testID).Count(&count).Error
	return count, err
}

// Delete удаляет вопрос
func (r *QuestionRepo) Delete(questionID uint) error {
	result := r.db.Delete(&entity.Question{}, questionID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
