package repository

import (
	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	AddQuestions(testID uint, questions []entity.Question) error
	GetByTestID(testID uint) ([]entity.Question, error)
	CountByTestID(testID uint) (int64, error)
	Delete(questionID uint) error
}
