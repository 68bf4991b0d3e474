package scoring

import (
	"time"
)

// NoAnswer — сентинельное значение "ответ не выбран".
// Совпадает с дефолтом selected_option в БД.
const NoAnswer = -1

// Question — минимальное представление вопроса, необходимое движку подсчета.
// Движок не знает ни текста, ни вариантов: валидация границ индекса
// выполняется при создании вопроса, а не при подсчете.
type Question struct {
	ID            string
	CorrectOption int
}

// Answer — ответ участника на один вопрос.
// SelectedOption == NoAnswer означает, что участник снял выбор.
type Answer struct {
	QuestionID     string
	SelectedOption int
}

// QuestionResult — поштучный разбор одного вопроса в итоговом результате.
// SelectedOption == nil, если ответа не было.
type QuestionResult struct {
	QuestionID     string `json:"question_id"`
	SelectedOption *int   `json:"selected_option"`
	IsCorrect      bool   `json:"is_correct"`
}

// ScoreResult — итог подсчета одной попытки.
type ScoreResult struct {
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	Percentage     int              `json:"percentage"`
	PerQuestion    []QuestionResult `json:"per_question"`
}

// Entry — проекция завершенной попытки для ранжирования.
// Строится из entity.Attempt, отдельно не хранится.
type Entry struct {
	AttemptID        string    `json:"attempt_id"`
	ParticipantKey   string    `json:"participant_key"`
	ParticipantName  string    `json:"participant_name"`
	CorrectCount     int       `json:"correct_count"`
	TotalQuestions   int       `json:"total_questions"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	CompletedAt      time.Time `json:"completed_at"`
	Disqualified     bool      `json:"disqualified"`
}

// RankChange — направление изменения позиции относительно прошлого снапшота.
type RankChange string

const (
	RankChangeUp   RankChange = "up"
	RankChangeDown RankChange = "down"
	RankChangeSame RankChange = "same"
	RankChangeNew  RankChange = "new"
)

// Medal — призовая отметка для первых трех позиций.
// Чистая функция от ранга, на подсчет очков не влияет.
type Medal string

const (
	MedalGold   Medal = "gold"
	MedalSilver Medal = "silver"
	MedalBronze Medal = "bronze"
	MedalNone   Medal = ""
)

// RankedEntry — элемент лидерборда после ранжирования.
type RankedEntry struct {
	Entry
	Rank       int        `json:"rank"`
	Percentage int        `json:"percentage"`
	RankChange RankChange `json:"rank_change"`
	Medal      Medal      `json:"medal,omitempty"`
}
