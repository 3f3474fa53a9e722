package main

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	_ "github.com/campusclub/gear-rental-api/api/swagger"
	"github.com/campusclub/gear-rental-api/internal/handler"
	"github.com/campusclub/gear-rental-api/internal/repository"
	"github.com/campusclub/gear-rental-api/internal/service"
	"github.com/campusclub/gear-rental-api/pkg/cache"
	"github.com/campusclub/gear-rental-api/pkg/config"
	"github.com/campusclub/gear-rental-api/pkg/database"
	"github.com/campusclub/gear-rental-api/pkg/logger"
)

// @title Club Gear Rental API
// @version 1.0.0
// @description Equipment rental administration for campus clubs
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	rentalRepo := repository.NewRentalRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, true)
	}

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "gear-rental-api",
	})
	userService := service.NewUserService(userRepo, logr)
	equipmentService := service.NewEquipmentService(equipmentRepo, validate, logr)
	semesterService := service.NewSemesterService(semesterRepo, validate, logr)
	requestService := service.NewRequestService(requestRepo, equipmentRepo, semesterRepo, validate, logr)
	rentalService := service.NewRentalService(rentalRepo, userRepo, equipmentRepo, semesterRepo, validate, logr, cfg.Rental.LateFeeDailyRate)
	auditService := service.NewAuditService(auditRepo, logr, cfg.Audit.DefaultLimit, cfg.Audit.MaxLimit)
	dashboardService := service.NewDashboardService(equipmentRepo, rentalRepo, requestRepo, userRepo, cacheService, logr, cfg.Dashboard.CacheTTL)
	exportService := service.NewExportService(rentalService, equipmentService, auditService, logr, nil, nil)

	router := handler.NewRouter(handler.RouterParams{
		Config:  cfg,
		Logger:  logr,
		DB:      db,
		Redis:   redisClient,
		Metrics: metrics,

		AuthService:      authService,
		UserService:      userService,
		EquipmentService: equipmentService,
		SemesterService:  semesterService,
		RequestService:   requestService,
		RentalService:    rentalService,
		AuditService:     auditService,
		DashboardService: dashboardService,
		ExportService:    exportService,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := router.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
