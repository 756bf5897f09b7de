package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/config"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/db"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/repository"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/service"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/storage"
)

type App struct {
	Cfg             *config.Config
	DB              *sqlx.DB
	AuthService     *service.AuthService
	EvidenceService *service.EvidenceService
	UserRepo        repository.UserRepository
}

func New(cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(database)
	skillRepo := repository.NewSkillRepository(database)
	deliverableRepo := repository.NewDeliverableRepository(database)
	evidenceRepo := repository.NewEvidenceRepository(database)
	activityRepo := repository.NewActivityRepository(database)

	// Storage client: built lazily per operation so credentials injected
	// after process start are honored.
	store := storage.NewClient()

	// Services
	authService := service.NewAuthService(cfg.JWTSecret, cfg.JWTExpiry)
	evidenceService := service.NewEvidenceService(deliverableRepo, skillRepo, evidenceRepo, activityRepo, store)

	return &App{
		Cfg:             cfg,
		DB:              database,
		AuthService:     authService,
		EvidenceService: evidenceService,
		UserRepo:        userRepo,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
