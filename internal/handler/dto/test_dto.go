package dto

import (
	"time"

	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// QuestionResponse представляет вопрос в формате для ответа клиенту.
// Индекс правильного ответа клиенту не отдается.
type QuestionResponse struct {
	ID        uint      `json:"id"`
	TestID    uint      `json:"test_id"`
	Text      string    `json:"text"`
	Options   []string  `json:"options"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TestResponse представляет тест в формате для ответа клиенту
type TestResponse struct {
	ID               uint               `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	Subject          string             `json:"subject,omitempty"`
	Difficulty       string             `json:"difficulty"`
	TimeLimitMinutes int                `json:"time_limit_minutes"`
	AllowRetakes     bool               `json:"allow_retakes"`
	Status           string             `json:"status"`
	QuestionCount    int                `json:"question_count"`
	Questions        []QuestionResponse `json:"questions,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// PaginatedTestResponse представляет пагинированный список тестов
type PaginatedTestResponse struct {
	Tests   []*TestResponse `json:"tests"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// NewQuestionResponse создает DTO для вопроса
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	return QuestionResponse{
		ID:        q.ID,
		TestID:    q.TestID,
		Text:      q.Text,
		Options:   q.Options,
		Position:  q.Position,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

// NewTestResponse создает DTO для теста
func NewTestResponse(test *entity.Test, includeQuestions bool) *TestResponse {
	resp := &TestResponse{
		ID:               test.ID,
		Title:            test.Title,
		Description:      test.Description,
		Subject:          test.Subject,
		Difficulty:       test.Difficulty,
		TimeLimitMinutes: test.TimeLimitMinutes,
		AllowRetakes:     test.AllowRetakes,
		Status:           test.Status,
		QuestionCount:    len(test.Questions),
		CreatedAt:        test.CreatedAt,
		UpdatedAt:        test.UpdatedAt,
	}

	if includeQuestions {
		resp.Questions = make([]QuestionResponse, 0, len(test.Questions))
		for i := range test.Questions {
			resp.Questions = append(resp.Questions, NewQuestionResponse(&test.Questions[i]))
		}
	}
	return resp
}

// NewPaginatedTestResponse создает пагинированный список DTO тестов
func NewPaginatedTestResponse(tests []entity.Test, total int64, page, perPage int) *PaginatedTestResponse {
	items := make([]*TestResponse, 0, len(tests))
	for i := range tests {
		items = append(items, NewTestResponse(&tests[i], false))
	}
	return &PaginatedTestResponse{
		Tests:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
}
