package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/cbt-api/internal/scoring"
)

// Константы статусов попытки
const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusCompleted  = "completed"
	AttemptStatusAbandoned  = "abandoned"
)

// Ошибки жизненного цикла попытки
var (
	// ErrAttemptNotMutable возвращается при попытке изменить ответы
	// вне статуса in_progress: после финализации запись неизменяема.
	ErrAttemptNotMutable = errors.New("attempt is not in progress")

	// ErrQuestionNotInAttempt возвращается, когда questionID не входит
	// в зафиксированный набор вопросов попытки.
	ErrQuestionNotInAttempt = errors.New("question is not part of this attempt")

	// ErrInvalidOption возвращается при выборе варианта вне диапазона вопроса.
	ErrInvalidOption = errors.New("selected option is out of range")
)

// SnapshotQuestion — вопрос, зафиксированный в попытке на момент старта.
// Снимок делает попытку самодостаточной: последующее редактирование
// или удаление вопросов теста на уже созданные попытки не влияет.
type SnapshotQuestion struct {
	QuestionID    string   `json:"question_id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuestionSnapshot - пользовательский тип для хранения снимка вопросов в JSONB
type QuestionSnapshot []SnapshotQuestion

// Scan реализует интерфейс sql.Scanner для QuestionSnapshot
func (s *QuestionSnapshot) Scan(value interface{}) error {
	return scanJSONB(value, s)
}

// Value реализует интерфейс driver.Valuer для QuestionSnapshot
func (s QuestionSnapshot) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// AttemptAnswer — сохраненный ответ участника на один вопрос снимка
type AttemptAnswer struct {
	QuestionID     string `json:"question_id"`
	SelectedOption int    `json:"selected_option"`
}

// AnswerList - пользовательский тип для хранения ответов в JSONB
type AnswerList []AttemptAnswer

// Scan реализует интерфейс sql.Scanner для AnswerList
func (a *AnswerList) Scan(value interface{}) error {
	return scanJSONB(value, a)
}

// Value реализует интерфейс driver.Valuer для AnswerList
func (a AnswerList) Value() (driver.Value, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// AnswerReview — поштучный разбор вопроса, кешируемый при финализации
type AnswerReview struct {
	QuestionID     string `json:"question_id"`
	SelectedOption *int   `json:"selected_option"`
	IsCorrect      bool   `json:"is_correct"`
}

// ReviewList - пользовательский тип для хранения разбора в JSONB
type ReviewList []AnswerReview

// Scan реализует интерфейс sql.Scanner для ReviewList
func (r *ReviewList) Scan(value interface{}) error {
	return scanJSONB(value, r)
}

// Value реализует интерфейс driver.Valuer для ReviewList
func (r ReviewList) Value() (driver.Value, error) {
	if len(r) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// scanJSONB разбирает JSONB-значение из базы в dest
func scanJSONB(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, dest)
}

// Attempt представляет одно прохождение теста участником.
// Жизненный цикл: создается при старте (in_progress), мутируется только
// перезаписью ответов, финализируется ровно один раз (completed), после
// чего запись неизменяема. Единственная разрешенная пост-финализационная
// мутация — флаг Disqualified, выставляемый модерацией.
type Attempt struct {
	ID               string           `gorm:"primaryKey;size:36" json:"id"`
	TestID           uint             `gorm:"not null;index" json:"test_id"`
	UserID           *uint            `gorm:"index" json:"user_id,omitempty"`
	ParticipantName  string           `gorm:"size:100;not null;default:''" json:"participant_name"`
	QuestionSet      QuestionSnapshot `gorm:"type:jsonb;not null" json:"-"`
	Answers          AnswerList       `gorm:"type:jsonb;not null" json:"-"`
	StartedAt        time.Time        `gorm:"not null" json:"started_at"`
	CompletedAt      *time.Time       `gorm:"index" json:"completed_at,omitempty"`
	TimeLimitSeconds int              `gorm:"not null" json:"time_limit_seconds"`
	Status           string           `gorm:"size:20;not null;default:'in_progress';index" json:"status"`
	Disqualified     bool             `gorm:"not null;default:false" json:"disqualified"`
	Score            int              `gorm:"not null;default:0" json:"score"`
	TotalQuestions   int              `gorm:"not null;default:0" json:"total_questions"`
	Percentage       int              `gorm:"not null;default:0" json:"percentage"`
	TimeTakenSeconds int              `gorm:"not null;default:0" json:"time_taken_seconds"`
	Review           ReviewList       `gorm:"type:jsonb" json:"-"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Attempt) TableName() string {
	return "attempts"
}

// IsInProgress проверяет, идет ли попытка
func (a *Attempt) IsInProgress() bool {
	return a.Status == AttemptStatusInProgress
}

// IsCompleted проверяет, финализирована ли попытка
func (a *Attempt) IsCompleted() bool {
	return a.Status == AttemptStatusCompleted
}

// ParticipantKey возвращает ключ участника для ранжирования и снапшотов
// рангов: ID пользователя для аутентифицированных, имя — для анонимных.
func (a *Attempt) ParticipantKey() string {
	if a.UserID != nil {
		return fmt.Sprintf("user:%d", *a.UserID)
	}
	return "guest:" + a.ParticipantName
}

// OwnedBy проверяет, принадлежит ли попытка данному пользователю.
// Анонимные попытки (UserID == nil) владельца не имеют.
func (a *Attempt) OwnedBy(userID uint) bool {
	return a.UserID != nil && *a.UserID == userID
}

// ExpiresAt возвращает момент истечения лимита времени
func (a *Attempt) ExpiresAt() time.Time {
	return a.StartedAt.Add(time.Duration(a.TimeLimitSeconds) * time.Second)
}

// IsExpired проверяет, истек ли лимит времени попытки.
// Истечение означает принудительную финализацию с теми ответами,
// которые есть на этот момент; новые ответы не принимаются.
func (a *Attempt) IsExpired(now time.Time) bool {
	return !now.Before(a.ExpiresAt())
}

// RecordAnswer сохраняет ответ на вопрос с семантикой перезаписи:
// повторный ответ на тот же вопрос заменяет предыдущий, не суммируется.
func (a *Attempt) RecordAnswer(questionID string, selectedOption int) error {
	if !a.IsInProgress() {
		return ErrAttemptNotMutable
	}

	question := a.findQuestion(questionID)
	if question == nil {
		return ErrQuestionNotInAttempt
	}
	if selectedOption != scoring.NoAnswer &&
		(selectedOption < 0 || selectedOption >= len(question.Options)) {
		return ErrInvalidOption
	}

	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			a.Answers[i].SelectedOption = selectedOption
			return nil
		}
	}
	a.Answers = append(a.Answers, AttemptAnswer{
		QuestionID:     questionID,
		SelectedOption: selectedOption,
	})
	return nil
}

// TimeTaken возвращает затраченное время в секундах, ограниченное
// диапазоном [0, TimeLimitSeconds]
func (a *Attempt) TimeTaken(now time.Time) int {
	elapsed := int(now.Sub(a.StartedAt).Seconds())
	if elapsed < 0 {
		return 0
	}
	if elapsed > a.TimeLimitSeconds {
		return a.TimeLimitSeconds
	}
	return elapsed
}

// ScoringQuestions преобразует снимок вопросов к входу движка подсчета
func (a *Attempt) ScoringQuestions() []scoring.Question {
	questions := make([]scoring.Question, 0, len(a.QuestionSet))
	for _, q := range a.QuestionSet {
		questions = append(questions, scoring.Question{
			ID:            q.QuestionID,
			CorrectOption: q.CorrectOption,
		})
	}
	return questions
}

// ScoringAnswers преобразует сохраненные ответы к входу движка подсчета
func (a *Attempt) ScoringAnswers() []scoring.Answer {
	answers := make([]scoring.Answer, 0, len(a.Answers))
	for _, ans := range a.Answers {
		answers = append(answers, scoring.Answer{
			QuestionID:     ans.QuestionID,
			SelectedOption: ans.SelectedOption,
		})
	}
	return answers
}

func (a *Attempt) findQuestion(questionID string) *SnapshotQuestion {
	for i := range a.QuestionSet {
		if a.QuestionSet[i].QuestionID == questionID {
			return &a.QuestionSet[i]
		}
	}
	return nil
}
