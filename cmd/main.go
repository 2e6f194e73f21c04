package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/config"
	"vaultdrive/internal/handler"
	"vaultdrive/internal/repository"
	"vaultdrive/internal/service"
	"vaultdrive/internal/service/blob"
	"vaultdrive/internal/service/extract"
)

func connectWithRetry(dsn string, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func newBlobStorage(cfg *config.Config) (blob.Storage, error) {
	switch cfg.Storage.Backend {
	case "disk":
		return blob.NewDiskStorage(cfg.Storage.LocalPath)
	case "s3":
		s3Config, err := blob.NewS3Config(".s3.env")
		if err != nil {
			return nil, fmt.Errorf("failed to load S3 config: %w", err)
		}
		return blob.NewS3Storage(s3Config)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

func main() {
	// Загружаем конфигурацию
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	auth.Init(appConfig.Auth.JWTSecret)

	// Подключаемся к базе данных
	db, err := connectWithRetry(appConfig.Database.GetDSN(), 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Инициализация хранилища содержимого файлов
	storage, err := newBlobStorage(appConfig)
	if err != nil {
		log.Fatalf("Failed to create blob storage: %v", err)
	}

	// Инициализация репозиториев
	userRepo := repository.NewUserRepository(db)
	folderRepo := repository.NewFolderRepository(db)
	fileRepo := repository.NewFileRepository(db)
	shareRepo := repository.NewShareRepository(db)

	// Инициализация сервисов
	quotaService := service.NewQuotaService(userRepo)
	accessService := service.NewAccessService(shareRepo)
	extractor := extract.NewPlainTextExtractor()
	folderService := service.NewFolderService(folderRepo, fileRepo, storage, quotaService)
	fileService := service.NewFileService(fileRepo, folderRepo, storage, quotaService, accessService, extractor)
	shareService := service.NewShareService(shareRepo, fileRepo, folderRepo, userRepo, storage)
	searchService := service.NewSearchService(fileRepo, folderRepo)

	// Инициализация хендлеров
	folderHandler := handler.NewFolderHandler(folderService)
	fileHandler := handler.NewFileHandler(fileService)
	shareHandler := handler.NewShareHandler(shareService)
	quotaHandler := handler.NewQuotaHandler(quotaService)
	searchHandler := handler.NewSearchHandler(searchService)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// HTTP маршруты
	r.Route("/v1", func(r chi.Router) {
		r.Post("/files", fileHandler.UploadFile)
		r.Get("/files", fileHandler.ListFiles)

		r.Route("/files/{uuid}", func(r chi.Router) {
			r.Get("/", fileHandler.GetFile)
			r.Get("/download", fileHandler.DownloadFile)
			r.Put("/rename", fileHandler.RenameFile)
			r.Put("/access", fileHandler.SetAccessLevel)
			r.Delete("/", fileHandler.DeleteFile)
			r.Post("/share", shareHandler.ShareFile)
			r.Post("/public-link", shareHandler.CreateFilePublicLink)
		})

		r.Post("/folders", folderHandler.CreateFolder)
		r.Get("/folders", folderHandler.GetContents)

		r.Route("/folders/{id}", func(r chi.Router) {
			r.Get("/", folderHandler.GetFolder)
			r.Get("/contents", folderHandler.GetContents)
			r.Get("/path", folderHandler.GetPath)
			r.Put("/rename", folderHandler.RenameFolder)
			r.Put("/access", folderHandler.SetAccessLevel)
			r.Delete("/", folderHandler.DeleteFolder)
			r.Post("/share", shareHandler.ShareFolder)
			r.Post("/public-link", shareHandler.CreateFolderPublicLink)
		})

		r.Get("/search", searchHandler.Search)

		r.Get("/public/{token}", shareHandler.ResolvePublicFile)
		r.Get("/public/{token}/info", shareHandler.ResolvePublicInfo)

		r.Get("/storage/info", quotaHandler.GetStorageInfo)
	})

	// Создаем HTTP сервер
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	}

	log.Println("Server exited properly")
}
