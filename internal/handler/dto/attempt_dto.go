package dto

import (
	"time"

	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// AttemptQuestionResponse — вопрос снимка попытки для клиента.
// Правильный ответ и пояснение во время прохождения скрыты.
type AttemptQuestionResponse struct {
	QuestionID string   `json:"question_id"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
}

// AnswerReviewResponse — поштучный разбор после финализации
type AnswerReviewResponse struct {
	QuestionID     string `json:"question_id"`
	Text           string `json:"text"`
	SelectedOption *int   `json:"selected_option"`
	CorrectOption  int    `json:"correct_option"`
	IsCorrect      bool   `json:"is_correct"`
	Explanation    string `json:"explanation,omitempty"`
}

// AttemptResponse представляет попытку в формате для ответа клиенту
type AttemptResponse struct {
	ID               string                    `json:"id"`
	TestID           uint                      `json:"test_id"`
	ParticipantName  string                    `json:"participant_name,omitempty"`
	Status           string                    `json:"status"`
	StartedAt        time.Time                 `json:"started_at"`
	CompletedAt      *time.Time                `json:"completed_at,omitempty"`
	ExpiresAt        time.Time                 `json:"expires_at"`
	TimeLimitSeconds int                       `json:"time_limit_seconds"`
	AnsweredCount    int                       `json:"answered_count"`
	TotalQuestions   int                       `json:"total_questions"`
	Questions        []AttemptQuestionResponse `json:"questions,omitempty"`
	// Поля результата заполняются только после финализации
	Score            *int                   `json:"score,omitempty"`
	Percentage       *int                   `json:"percentage,omitempty"`
	TimeTakenSeconds *int                   `json:"time_taken_seconds,omitempty"`
	Disqualified     bool                   `json:"disqualified"`
	Review           []AnswerReviewResponse `json:"review,omitempty"`
}

// NewAttemptResponse создает DTO попытки.
// Для идущей попытки отдаются вопросы без правильных ответов;
// для финализированной — счет и разбор с правильными ответами.
func NewAttemptResponse(a *entity.Attempt) *AttemptResponse {
	resp := &AttemptResponse{
		ID:               a.ID,
		TestID:           a.TestID,
		ParticipantName:  a.ParticipantName,
		Status:           a.Status,
		StartedAt:        a.StartedAt,
		CompletedAt:      a.CompletedAt,
		ExpiresAt:        a.ExpiresAt(),
		TimeLimitSeconds: a.TimeLimitSeconds,
		AnsweredCount:    len(a.Answers),
		TotalQuestions:   a.TotalQuestions,
		Disqualified:     a.Disqualified,
	}

	if a.IsInProgress() {
		resp.Questions = make([]AttemptQuestionResponse, 0, len(a.QuestionSet))
		for _, q := range a.QuestionSet {
			resp.Questions = append(resp.Questions, AttemptQuestionResponse{
				QuestionID: q.QuestionID,
				Text:       q.Text,
				Options:    q.Options,
			})
		}
		return resp
	}

	if a.IsCompleted() {
		score := a.Score
		percentage := a.Percentage
		timeTaken := a.TimeTakenSeconds
		resp.Score = &score
		resp.Percentage = &percentage
		resp.TimeTakenSeconds = &timeTaken
		resp.Review = buildReview(a)
	}
	return resp
}

// buildReview собирает разбор: кешированные вердикты движка, обогащенные
// текстами вопросов и пояснениями из снимка
func buildReview(a *entity.Attempt) []AnswerReviewResponse {
	byID := make(map[string]*entity.SnapshotQuestion, len(a.QuestionSet))
	for i := range a.QuestionSet {
		byID[a.QuestionSet[i].QuestionID] = &a.QuestionSet[i]
	}

	review := make([]AnswerReviewResponse, 0, len(a.Review))
	for _, r := range a.Review {
		item := AnswerReviewResponse{
			QuestionID:     r.QuestionID,
			SelectedOption: r.SelectedOption,
			IsCorrect:      r.IsCorrect,
		}
		if q, ok := byID[r.QuestionID]; ok {
			item.Text = q.Text
			item.CorrectOption = q.CorrectOption
			item.Explanation = q.Explanation
		}
		review = append(review, item)
	}
	return review
}
