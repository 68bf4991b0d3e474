package repository

import (
	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// TestRepository определяет методы для работы с тестами
type TestRepository interface {
	Create(test *entity.Test) error
	GetByID(id uint) (*entity.Test, error)
	GetWithQuestions(id uint) (*entity.Test, error)
	List(limit, offset int) ([]entity.Test, int64, error)
	ListBySubject(subject string, limit, offset int) ([]entity.Test, int64, error)
	UpdateStatus(id uint, status string) error
}
