package scoring

import (
	"errors"
)

// ErrEmptyQuestionSet возвращается при попытке подсчитать пустой набор вопросов.
// Пустой набор — нарушение предусловия: молчаливый "0%" был бы неотличим
// от честно проваленной попытки, поэтому это отдельная ошибка, а не результат.
var ErrEmptyQuestionSet = errors.New("question set is empty")

// Score подсчитывает результат попытки: количество правильных ответов,
// процент и поштучный разбор в порядке набора вопросов.
//
// Функция чистая и детерминированная: повторный вызов с теми же входными
// данными дает идентичный результат. Нормализация входа:
//   - ответы на вопросы вне набора игнорируются (устаревшее состояние клиента);
//   - при нескольких ответах на один вопрос действует последний;
//   - отсутствующий ответ всегда считается неправильным.
func Score(questions []Question, answers []Answer) (*ScoreResult, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuestionSet
	}

	known := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}

	// Последний ответ перезаписывает предыдущие, суммирования нет
	latest := make(map[string]int, len(answers))
	for _, a := range answers {
		if _, ok := known[a.QuestionID]; !ok {
			continue
		}
		latest[a.QuestionID] = a.SelectedOption
	}

	result := &ScoreResult{
		TotalQuestions: len(questions),
		PerQuestion:    make([]QuestionResult, 0, len(questions)),
	}

	for _, q := range questions {
		qr := QuestionResult{QuestionID: q.ID}
		if selected, ok := latest[q.ID]; ok && selected != NoAnswer {
			s := selected
			qr.SelectedOption = &s
			qr.IsCorrect = selected == q.CorrectOption
		}
		if qr.IsCorrect {
			result.CorrectCount++
		}
		result.PerQuestion = append(result.PerQuestion, qr)
	}

	result.Percentage = Percentage(result.CorrectCount, result.TotalQuestions)
	return result, nil
}

// Percentage возвращает round(correct/total*100) c округлением половины вверх.
// Считается в целых числах, чтобы результат не зависел от плавающей точки:
// round(100*c/t) == floor((100*c + t/2) / t) == (200*c + t) / (2*t).
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}
