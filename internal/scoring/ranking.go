package scoring

import (
	"sort"
)

// Rank упорядочивает записи лидерборда одного теста и присваивает ранги.
// previousRanks — прошлый снапшот (ключ участника -> ранг) для индикаторов
// движения; при nil каждая запись классифицируется как "new".
//
// Порядок сортировки (видим пользователю, менять нельзя):
//  1. дисквалифицированные строго после всех остальных, независимо от очков;
//  2. внутри корзины — процент правильных по убыванию (correct/total,
//     не сырой счет: количество вопросов у попыток может различаться);
//  3. при равном проценте — более раннее время завершения выше;
//  4. остаток — лексикографически по ID попытки, чтобы гарантировать
//     полный порядок и воспроизводимый результат.
//
// Вход не мутируется; пустой вход дает пустой результат без ошибки.
func Rank(entries []Entry, previousRanks map[string]int) []RankedEntry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		return Less(sorted[i], sorted[j])
	})

	ranked := make([]RankedEntry, 0, len(sorted))
	for i, e := range sorted {
		rank := i + 1
		ranked = append(ranked, RankedEntry{
			Entry:      e,
			Rank:       rank,
			Percentage: Percentage(e.CorrectCount, e.TotalQuestions),
			RankChange: classifyChange(rank, e.ParticipantKey, previousRanks),
			Medal:      MedalForRank(rank),
		})
	}
	return ranked
}

// Less сравнивает две записи по правилам ранжирования лидерборда.
func Less(a, b Entry) bool {
	if a.Disqualified != b.Disqualified {
		return !a.Disqualified
	}
	// Сравнение долей через перекрестное умножение: a.c/a.t > b.c/b.t
	// эквивалентно a.c*b.t > b.c*a.t и не требует плавающей точки.
	left := a.CorrectCount * b.TotalQuestions
	right := b.CorrectCount * a.TotalQuestions
	if left != right {
		return left > right
	}
	if !a.CompletedAt.Equal(b.CompletedAt) {
		return a.CompletedAt.Before(b.CompletedAt)
	}
	return a.AttemptID < b.AttemptID
}

// classifyChange сравнивает новый ранг с прошлым снапшотом.
func classifyChange(rank int, participantKey string, previousRanks map[string]int) RankChange {
	prev, ok := previousRanks[participantKey]
	if !ok {
		return RankChangeNew
	}
	switch {
	case rank < prev:
		return RankChangeUp
	case rank > prev:
		return RankChangeDown
	default:
		return RankChangeSame
	}
}

// MedalForRank возвращает призовую отметку для первых трех позиций.
func MedalForRank(rank int) Medal {
	switch rank {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	default:
		return MedalNone
	}
}

// SnapshotRanks строит снапшот "участник -> ранг" из результата ранжирования.
// Снапшот сохраняется в кеше и подается в следующий вызов Rank как previousRanks.
func SnapshotRanks(ranked []RankedEntry) map[string]int {
	snapshot := make(map[string]int, len(ranked))
	for _, e := range ranked {
		snapshot[e.ParticipantKey] = e.Rank
	}
	return snapshot
}
