package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
	"github.com/yourusername/cbt-api/internal/scoring"
)

// rankSnapshotTTL — время жизни снапшота рангов в Redis. По истечении
// следующий просмотр лидерборда классифицирует всех участников как "new".
const rankSnapshotTTL = 7 * 24 * time.Hour

// LeaderboardService строит лидерборд теста: проецирует финализированные
// попытки в записи ранжирования, прогоняет движок и сохраняет снапшот
// рангов для индикаторов движения при следующем просмотре.
type LeaderboardService struct {
	attemptRepo repository.AttemptRepository
	testRepo    repository.TestRepository
	cacheRepo   repository.CacheRepository
}

// NewLeaderboardService создает новый сервис лидерборда
func NewLeaderboardService(
	attemptRepo repository.AttemptRepository,
	testRepo repository.TestRepository,
	cacheRepo repository.CacheRepository,
) *LeaderboardService {
	return &LeaderboardService{
		attemptRepo: attemptRepo,
		testRepo:    testRepo,
		cacheRepo:   cacheRepo,
	}
}

// Leaderboard — страница лидерборда
type Leaderboard struct {
	TestID  uint                  `json:"test_id"`
	Entries []scoring.RankedEntry `json:"entries"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"per_page"`
}

// GetLeaderboard возвращает страницу лидерборда теста.
// Ранжирование всегда выполняется по полному набору финализированных
// попыток (пагинация только на выдаче), иначе ранги на страницах
// были бы несогласованными.
func (s *LeaderboardService) GetLeaderboard(testID uint, page, pageSize int) (*Leaderboard, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	} else if pageSize > 100 {
		pageSize = 100
	}

	if _, err := s.testRepo.GetByID(testID); err != nil {
		return nil, err
	}

	ranked, err := s.rankAll(testID)
	if err != nil {
		return nil, err
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(ranked) {
		start = len(ranked)
	}
	if end > len(ranked) {
		end = len(ranked)
	}

	return &Leaderboard{
		TestID:  testID,
		Entries: ranked[start:end],
		Total:   len(ranked),
		Page:    page,
		PerPage: pageSize,
	}, nil
}

// rankAll загружает попытки, ранжирует их и обновляет снапшот рангов
func (s *LeaderboardService) rankAll(testID uint) ([]scoring.RankedEntry, error) {
	attempts, err := s.attemptRepo.GetCompletedByTest(testID)
	if err != nil {
		return nil, err
	}

	entries := make([]scoring.Entry, 0, len(attempts))
	for i := range attempts {
		entries = append(entries, entryFromAttempt(&attempts[i]))
	}

	previous, err := s.loadRankSnapshot(testID)
	if err != nil {
		// Кеш не критичен: без снапшота все записи будут "new"
		log.Printf("[LeaderboardService] Не удалось загрузить снапшот рангов теста #%d: %v", testID, err)
		previous = nil
	}

	ranked := scoring.Rank(entries, previous)

	if err := s.saveRankSnapshot(testID, scoring.SnapshotRanks(ranked)); err != nil {
		log.Printf("[LeaderboardService] Не удалось сохранить снапшот рангов теста #%d: %v", testID, err)
	}

	return ranked, nil
}

// InvalidateSnapshot удаляет снапшот рангов теста.
// После модерации лидерборд пересчитывается целиком, а не патчится.
func (s *LeaderboardService) InvalidateSnapshot(testID uint) error {
	return s.cacheRepo.Delete(rankSnapshotKey(testID))
}

// ExportToExcel выгружает полный лидерборд теста в XLSX для админ-консоли
func (s *LeaderboardService) ExportToExcel(testID uint) (*excelize.File, error) {
	test, err := s.testRepo.GetByID(testID)
	if err != nil {
		return nil, err
	}

	ranked, err := s.rankAll(testID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"Rank", "Participant", "Score", "Total", "Percentage", "Time Taken (s)", "Completed At", "Disqualified"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, e := range ranked {
		values := []interface{}{
			e.Rank,
			e.ParticipantName,
			e.CorrectCount,
			e.TotalQuestions,
			e.Percentage,
			e.TimeTakenSeconds,
			e.CompletedAt.Format(time.RFC3339),
			e.Disqualified,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}

	log.Printf("[LeaderboardService] Экспортирован лидерборд теста #%d (%q): %d записей", testID, test.Title, len(ranked))
	return f, nil
}

func (s *LeaderboardService) loadRankSnapshot(testID uint) (map[string]int, error) {
	var snapshot map[string]int
	err := s.cacheRepo.GetJSON(rankSnapshotKey(testID), &snapshot)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return snapshot, nil
}

func (s *LeaderboardService) saveRankSnapshot(testID uint, snapshot map[string]int) error {
	return s.cacheRepo.SetJSON(rankSnapshotKey(testID), snapshot, rankSnapshotTTL)
}

func rankSnapshotKey(testID uint) string {
	return fmt.Sprintf("leaderboard:%d:ranks", testID)
}

// entryFromAttempt проецирует финализированную попытку в запись ранжирования
func entryFromAttempt(a *entity.Attempt) scoring.Entry {
	completedAt := time.Time{}
	if a.CompletedAt != nil {
		completedAt = *a.CompletedAt
	}
	name := a.ParticipantName
	if name == "" && a.UserID != nil {
		name = fmt.Sprintf("user #%d", *a.UserID)
	}
	return scoring.Entry{
		AttemptID:        a.ID,
		ParticipantKey:   a.ParticipantKey(),
		ParticipantName:  name,
		CorrectCount:     a.Score,
		TotalQuestions:   a.TotalQuestions,
		TimeTakenSeconds: a.TimeTakenSeconds,
		CompletedAt:      completedAt,
		Disqualified:     a.Disqualified,
	}
}
