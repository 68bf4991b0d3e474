package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/cbt-api/internal/config"
	"github.com/yourusername/cbt-api/internal/handler"
	"github.com/yourusername/cbt-api/internal/middleware"
	pgRepo "github.com/yourusername/cbt-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/cbt-api/internal/repository/redis"
	"github.com/yourusername/cbt-api/internal/service"
	ws "github.com/yourusername/cbt-api/internal/websocket"
	"github.com/yourusername/cbt-api/pkg/auth"
	"github.com/yourusername/cbt-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}

	// Контекст приложения: отменяется при получении сигнала остановки
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Репозитории
	testRepo := pgRepo.NewTestRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to create cache repository: %v", err)
		os.Exit(1)
	}

	// JWT-сервис
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to create JWT service: %v", err)
		os.Exit(1)
	}

	// WebSocket-хаб рассылки обновлений лидерборда
	var notifier service.LeaderboardNotifier
	hub := ws.NewHub()
	if cfg.WebSocket.Enabled {
		notifier = hub
	}

	// Сервисы
	testService := service.NewTestService(testRepo, questionRepo)
	attemptService := service.NewAttemptService(attemptRepo, testRepo, notifier)
	leaderboardService := service.NewLeaderboardService(attemptRepo, testRepo, cacheRepo)

	// Обработчики
	testHandler := handler.NewTestHandler(testService)
	attemptHandler := handler.NewAttemptHandler(attemptService)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
	wsHandler := handler.NewWSHandler(hub, cfg.Server.AllowedOrigins)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Фоновая финализация истекших попыток
	go runExpirySweep(appCtx, attemptService, cfg.Attempts)

	// Роутер
	router := gin.Default()

	allowedOrigins := cfg.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		// Тесты: чтение доступно всем
		tests := api.Group("/tests")
		{
			tests.GET("", testHandler.ListTests)
			tests.GET("/:id", middleware.ExtractUintParam("id", "testID"), testHandler.GetTest)
			tests.GET("/:id/questions", middleware.ExtractUintParam("id", "testID"), testHandler.GetTestWithQuestions)
			tests.GET("/:id/leaderboard", middleware.ExtractUintParam("id", "testID"), leaderboardHandler.GetLeaderboard)

			// Управление тестами: только администраторы
			admin := tests.Group("", authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
			{
				admin.POST("", testHandler.CreateTest)
				admin.POST("/:id/questions", middleware.ExtractUintParam("id", "testID"), testHandler.AddQuestions)
				admin.POST("/:id/questions/import", middleware.ExtractUintParam("id", "testID"), testHandler.ImportQuestions)
				admin.POST("/:id/publish", middleware.ExtractUintParam("id", "testID"), testHandler.PublishTest)
				admin.POST("/:id/archive", middleware.ExtractUintParam("id", "testID"), testHandler.ArchiveTest)
				admin.GET("/:id/leaderboard/export", middleware.ExtractUintParam("id", "testID"), leaderboardHandler.ExportLeaderboard)
			}
		}

		// Попытки: доступны и анонимным участникам
		attempts := api.Group("/attempts", authMiddleware.OptionalAuth())
		{
			attempts.POST("", rateLimiter.Limit(middleware.AttemptStartRateLimitConfig()), attemptHandler.StartAttempt)
			attempts.GET("/:id", middleware.ExtractUUIDParam("id", "attemptID"), attemptHandler.GetAttempt)
			attempts.POST("/:id/answers", middleware.ExtractUUIDParam("id", "attemptID"),
				rateLimiter.Limit(middleware.AnswerRateLimitConfig()), attemptHandler.SubmitAnswer)
			attempts.POST("/:id/finalize", middleware.ExtractUUIDParam("id", "attemptID"), attemptHandler.FinalizeAttempt)
			attempts.POST("/:id/abandon", middleware.ExtractUUIDParam("id", "attemptID"), attemptHandler.AbandonAttempt)

			// Модерация
			attempts.PATCH("/:id/disqualify", authMiddleware.RequireAuth(), authMiddleware.AdminOnly(),
				middleware.ExtractUUIDParam("id", "attemptID"), attemptHandler.SetDisqualified)
		}

		// WebSocket-подписка на обновления лидерборда
		if cfg.WebSocket.Enabled {
			api.GET("/ws/tests/:id/leaderboard", middleware.ExtractUintParam("id", "testID"), wsHandler.Subscribe)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ждем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Отправляем сигнал завершения для всех горутин
	cancel()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}

// runExpirySweep периодически финализирует идущие попытки с истекшим
// лимитом времени, чтобы записи не зависали в in_progress
func runExpirySweep(ctx context.Context, attemptService *service.AttemptService, cfg config.AttemptsConfig) {
	interval := time.Duration(cfg.ExpirySweepIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	batchSize := cfg.ExpirySweepBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ExpirySweep] Остановка фоновой финализации")
			return
		case <-ticker.C:
			if _, err := attemptService.FinalizeExpiredAttempts(batchSize); err != nil {
				log.Printf("[ExpirySweep] Ошибка финализации истекших попыток: %v", err)
			}
		}
	}
}
