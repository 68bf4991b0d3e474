package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cbt-api/internal/scoring"
)

func newInProgressAttempt() *Attempt {
	return &Attempt{
		ID:     "a0000000-0000-0000-0000-000000000001",
		TestID: 1,
		QuestionSet: QuestionSnapshot{
			{QuestionID: "q1", Text: "2+2?", Options: []string{"3", "4", "5"}, CorrectOption: 1},
			{QuestionID: "q2", Text: "3*3?", Options: []string{"6", "9"}, CorrectOption: 1},
		},
		StartedAt:        time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		TimeLimitSeconds: 600,
		Status:           AttemptStatusInProgress,
	}
}

func TestAttempt_RecordAnswer_OverwritesPrevious(t *testing.T) {
	// Arrange
	attempt := newInProgressAttempt()

	// Act: два ответа на один вопрос
	require.NoError(t, attempt.RecordAnswer("q1", 0))
	require.NoError(t, attempt.RecordAnswer("q1", 1))

	// Assert: ответ один, действует последний
	require.Len(t, attempt.Answers, 1, "Повторный ответ должен перезаписывать, а не добавляться")
	assert.Equal(t, 1, attempt.Answers[0].SelectedOption)
}

func TestAttempt_RecordAnswer_RejectsUnknownQuestion(t *testing.T) {
	attempt := newInProgressAttempt()

	err := attempt.RecordAnswer("ghost", 0)

	assert.ErrorIs(t, err, ErrQuestionNotInAttempt, "Ответ на вопрос вне снимка должен отклоняться")
}

func TestAttempt_RecordAnswer_RejectsOutOfRangeOption(t *testing.T) {
	attempt := newInProgressAttempt()

	assert.ErrorIs(t, attempt.RecordAnswer("q2", 2), ErrInvalidOption,
		"У q2 только 2 варианта, индекс 2 невалиден")
	assert.ErrorIs(t, attempt.RecordAnswer("q2", -5), ErrInvalidOption)
}

func TestAttempt_RecordAnswer_AllowsClearingSelection(t *testing.T) {
	// Arrange
	attempt := newInProgressAttempt()
	require.NoError(t, attempt.RecordAnswer("q1", 1))

	// Act: снятие выбора через сентинел
	err := attempt.RecordAnswer("q1", scoring.NoAnswer)

	// Assert
	require.NoError(t, err, "Снятие выбора должно быть разрешено")
	assert.Equal(t, scoring.NoAnswer, attempt.Answers[0].SelectedOption)
}

func TestAttempt_RecordAnswer_RejectedAfterCompletion(t *testing.T) {
	// Arrange: финализированная попытка неизменяема
	attempt := newInProgressAttempt()
	attempt.Status = AttemptStatusCompleted

	// Act
	err := attempt.RecordAnswer("q1", 1)

	// Assert
	assert.ErrorIs(t, err, ErrAttemptNotMutable, "После финализации ответы не принимаются")
	assert.Empty(t, attempt.Answers)
}

func TestAttempt_IsExpired(t *testing.T) {
	// Arrange
	attempt := newInProgressAttempt() // старт 10:00:00, лимит 600 секунд

	// Act & Assert
	assert.False(t, attempt.IsExpired(attempt.StartedAt.Add(599*time.Second)),
		"За секунду до дедлайна попытка не истекла")
	assert.True(t, attempt.IsExpired(attempt.StartedAt.Add(600*time.Second)),
		"Ровно на дедлайне попытка считается истекшей")
	assert.True(t, attempt.IsExpired(attempt.StartedAt.Add(time.Hour)))
}

func TestAttempt_TimeTaken_Clamped(t *testing.T) {
	// Arrange
	attempt := newInProgressAttempt()

	testCases := []struct {
		name     string
		now      time.Time
		expected int
	}{
		{"внутри лимита", attempt.StartedAt.Add(45 * time.Second), 45},
		{"после дедлайна — не больше лимита", attempt.StartedAt.Add(2 * time.Hour), 600},
		{"часы назад — не меньше нуля", attempt.StartedAt.Add(-time.Minute), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, attempt.TimeTaken(tc.now))
		})
	}
}

func TestAttempt_ParticipantKey(t *testing.T) {
	// Arrange
	userID := uint(42)
	authed := &Attempt{UserID: &userID, ParticipantName: "Алия"}
	anonymous := &Attempt{ParticipantName: "aliya@example.com"}

	// Act & Assert
	assert.Equal(t, "user:42", authed.ParticipantKey(),
		"Для аутентифицированного участника ключ строится из ID")
	assert.Equal(t, "guest:aliya@example.com", anonymous.ParticipantKey(),
		"Для анонимного участника ключ строится из имени")
}

func TestAttempt_OwnedBy(t *testing.T) {
	userID := uint(7)
	attempt := &Attempt{UserID: &userID}

	assert.True(t, attempt.OwnedBy(7))
	assert.False(t, attempt.OwnedBy(8))
	assert.False(t, (&Attempt{}).OwnedBy(7), "Анонимная попытка владельца не имеет")
}

func TestAttempt_ScoringConversions(t *testing.T) {
	// Arrange
	attempt := newInProgressAttempt()
	require.NoError(t, attempt.RecordAnswer("q1", 1))

	// Act
	questions := attempt.ScoringQuestions()
	answers := attempt.ScoringAnswers()

	// Assert: снимок и ответы переводятся во вход движка без потерь
	require.Len(t, questions, 2)
	assert.Equal(t, scoring.Question{ID: "q1", CorrectOption: 1}, questions[0])
	require.Len(t, answers, 1)
	assert.Equal(t, scoring.Answer{QuestionID: "q1", SelectedOption: 1}, answers[0])
}

func TestQuestionSnapshot_ScanValue(t *testing.T) {
	// Arrange
	original := QuestionSnapshot{
		{QuestionID: "q1", Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1},
	}

	// Act: сериализация в JSONB и обратно
	raw, err := original.Value()
	require.NoError(t, err)

	var restored QuestionSnapshot
	require.NoError(t, restored.Scan(raw))

	// Assert: полная точность, без потерь
	assert.Equal(t, original, restored, "Снимок должен восстанавливаться без потерь")
}

func TestAttempt_TableName(t *testing.T) {
	assert.Equal(t, "attempts", Attempt{}.TableName())
}
