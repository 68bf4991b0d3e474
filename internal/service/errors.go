package service

import "errors"

// Ошибки уровня сервисов
var (
	// ErrTestNotPublished означает попытку пройти неопубликованный тест.
	ErrTestNotPublished = errors.New("test is not published")

	// ErrTestHasNoQuestions означает, что тест нельзя начать: в нем нет вопросов.
	// Отдельная ошибка, чтобы пустой набор не дошел до движка подсчета.
	ErrTestHasNoQuestions = errors.New("test has no questions")

	// ErrRetakeNotAllowed означает, что участник уже финализировал попытку,
	// а конфигурация теста повторные прохождения запрещает.
	ErrRetakeNotAllowed = errors.New("retakes are not allowed for this test")

	// ErrAttemptExpired означает, что лимит времени попытки истек;
	// попытка финализирована с имеющимися ответами, новые не принимаются.
	ErrAttemptExpired = errors.New("attempt time limit has expired")

	// ErrUnscorable означает, что попытку невозможно подсчитать (пустой набор
	// вопросов). Такая попытка никогда не показывается как "0%".
	ErrUnscorable = errors.New("attempt cannot be scored")
)
