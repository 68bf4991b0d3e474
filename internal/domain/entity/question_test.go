package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestion_Validate_ValidQuestion(t *testing.T) {
	// Arrange
	question := &Question{
		TestID:        1,
		Text:          "Чему равна производная x^2?",
		Options:       StringArray{"x", "2x", "x^2", "2"},
		CorrectOption: 1,
	}

	// Act & Assert
	assert.NoError(t, question.Validate(), "Корректный вопрос должен проходить валидацию")
}

func TestQuestion_Validate_RejectsOutOfRangeCorrectOption(t *testing.T) {
	testCases := []struct {
		name          string
		correctOption int
	}{
		{"индекс за верхней границей", 4},
		{"индекс далеко за пределами", 100},
		{"отрицательный индекс", -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			question := &Question{
				Text:          "Вопрос",
				Options:       StringArray{"A", "B", "C", "D"},
				CorrectOption: tc.correctOption,
			}
			assert.Error(t, question.Validate(),
				"Вопрос с индексом правильного ответа вне диапазона должен отклоняться при приеме")
		})
	}
}

func TestQuestion_Validate_RejectsTooFewOptions(t *testing.T) {
	// Arrange
	question := &Question{
		Text:          "Вопрос",
		Options:       StringArray{"единственный вариант"},
		CorrectOption: 0,
	}

	// Act & Assert
	assert.Error(t, question.Validate(), "Вопрос должен иметь минимум 2 варианта")
}

func TestQuestion_Validate_RejectsEmptyText(t *testing.T) {
	question := &Question{
		Options:       StringArray{"A", "B"},
		CorrectOption: 0,
	}
	assert.Error(t, question.Validate(), "Вопрос без текста должен отклоняться")
}

func TestQuestion_IsCorrect(t *testing.T) {
	// Arrange
	question := &Question{
		Options:       StringArray{"A", "B", "C", "D"},
		CorrectOption: 2,
	}

	// Act & Assert
	assert.True(t, question.IsCorrect(2), "IsCorrect должен вернуть true для правильного ответа")
	assert.False(t, question.IsCorrect(0), "IsCorrect должен вернуть false для неправильного ответа")
	assert.False(t, question.IsCorrect(3), "IsCorrect должен вернуть false для неправильного ответа")
}

func TestQuestion_IsValidOption(t *testing.T) {
	// Arrange
	question := &Question{
		Options: StringArray{"A", "B", "C", "D"},
	}

	// Act & Assert: валидные опции
	assert.True(t, question.IsValidOption(0), "Индекс 0 должен быть валидным")
	assert.True(t, question.IsValidOption(3), "Индекс 3 должен быть валидным")

	// Assert: невалидные опции
	assert.False(t, question.IsValidOption(-1), "Отрицательный индекс должен быть невалидным")
	assert.False(t, question.IsValidOption(4), "Индекс вне диапазона должен быть невалидным")
}

func TestQuestion_TableName(t *testing.T) {
	question := Question{}
	assert.Equal(t, "questions", question.TableName(), "TableName должен возвращать 'questions'")
}

// Тесты для StringArray (JSONB сериализация)

func TestStringArray_Scan_ValidJSON(t *testing.T) {
	// Arrange
	jsonBytes := []byte(`["Вариант 1", "Вариант 2", "Вариант 3"]`)
	var arr StringArray

	// Act
	err := arr.Scan(jsonBytes)

	// Assert
	require.NoError(t, err, "Scan не должен возвращать ошибку для валидного JSON")
	assert.Len(t, arr, 3, "Должно быть 3 элемента")
	assert.Equal(t, "Вариант 1", arr[0])
}

func TestStringArray_Scan_NullValue(t *testing.T) {
	// Arrange
	var arr StringArray

	// Act
	err := arr.Scan(nil)

	// Assert
	require.NoError(t, err, "Scan не должен возвращать ошибку для nil")
	assert.Len(t, arr, 0, "Для nil должен вернуться пустой массив")
}

func TestStringArray_Scan_InvalidType(t *testing.T) {
	// Arrange
	var arr StringArray

	// Act: передаём неподдерживаемый тип
	err := arr.Scan("not a byte slice")

	// Assert
	assert.Error(t, err, "Scan должен возвращать ошибку для неподдерживаемого типа")
}

func TestStringArray_Value_NonEmpty(t *testing.T) {
	// Arrange
	arr := StringArray{"A", "B", "C"}

	// Act
	val, err := arr.Value()

	// Assert
	require.NoError(t, err, "Value не должен возвращать ошибку")

	bytes, ok := val.([]byte)
	require.True(t, ok, "Value должен возвращать []byte")
	assert.Equal(t, `["A","B","C"]`, string(bytes), "JSON должен быть корректным")
}

func TestStringArray_Value_Nil(t *testing.T) {
	// Arrange
	var arr StringArray = nil

	// Act
	val, err := arr.Value()

	// Assert
	require.NoError(t, err, "Value не должен возвращать ошибку для nil")

	bytes, ok := val.([]byte)
	require.True(t, ok, "Value должен возвращать []byte")
	assert.Equal(t, "[]", string(bytes), "nil должен сериализоваться в []")
}
