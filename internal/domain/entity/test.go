package entity

import (
	"time"
)

// Константы статусов теста
const (
	TestStatusDraft     = "draft"
	TestStatusPublished = "published"
	TestStatusArchived  = "archived"
)

// Test представляет тест (набор вопросов с настройками прохождения)
type Test struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Title            string     `gorm:"size:100;not null" json:"title"`
	Description      string     `gorm:"size:500;not null;default:''" json:"description"`
	Subject          string     `gorm:"size:50;not null;default:'';index" json:"subject"`
	Difficulty       string     `gorm:"size:20;not null;default:'medium'" json:"difficulty"`
	TimeLimitMinutes int        `gorm:"not null;default:10" json:"time_limit_minutes"`
	AllowRetakes     bool       `gorm:"not null;default:false" json:"allow_retakes"`
	Status           string     `gorm:"size:20;not null;default:'draft';index" json:"status"`
	CreatedBy        uint       `gorm:"not null;index" json:"created_by"`
	Questions        []Question `gorm:"foreignKey:TestID" json:"questions,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Test) TableName() string {
	return "tests"
}

// IsPublished проверяет, опубликован ли тест
func (t *Test) IsPublished() bool {
	return t.Status == TestStatusPublished
}

// AllowsRetake сообщает, разрешена ли повторная попытка.
// Единственный источник решения — флаг конфигурации теста: ни стрики,
// ни количество прошлых попыток на повторное прохождение не влияют.
func (t *Test) AllowsRetake() bool {
	return t.AllowRetakes
}

// TimeLimitSeconds возвращает лимит времени теста в секундах.
// Лимит хранится в минутах в конфигурации теста и фиксируется на попытке
// в секундах в момент старта.
func (t *Test) TimeLimitSeconds() int {
	return t.TimeLimitMinutes * 60
}
