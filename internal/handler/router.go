package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/campusclub/gear-rental-api/internal/middleware"
	"github.com/campusclub/gear-rental-api/internal/models"
	"github.com/campusclub/gear-rental-api/internal/service"
	"github.com/campusclub/gear-rental-api/pkg/config"
	"github.com/campusclub/gear-rental-api/pkg/logger"
	corsmiddleware "github.com/campusclub/gear-rental-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusclub/gear-rental-api/pkg/middleware/requestid"
)

// RouterParams groups everything the HTTP surface depends on.
type RouterParams struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sqlx.DB
	Redis   *redis.Client
	Metrics *service.MetricsService

	AuthService      *service.AuthService
	UserService      *service.UserService
	EquipmentService *service.EquipmentService
	SemesterService  *service.SemesterService
	RequestService   *service.RequestService
	RentalService    *service.RentalService
	AuditService     *service.AuditService
	DashboardService *service.DashboardService
	ExportService    *service.ExportService
}

// NewRouter assembles the gin engine with all middleware and routes.
func NewRouter(p RouterParams) *gin.Engine {
	if p.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(p.Logger))
	r.Use(corsmiddleware.New(p.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(p.Metrics))

	authHandler := NewAuthHandler(p.AuthService, p.UserService)
	userHandler := NewUserHandler(p.UserService)
	equipmentHandler := NewEquipmentHandler(p.EquipmentService)
	semesterHandler := NewSemesterHandler(p.SemesterService)
	requestHandler := NewRequestHandler(p.RequestService)
	rentalHandler := NewRentalHandler(p.RentalService)
	auditHandler := NewAuditHandler(p.AuditService)
	dashboardHandler := NewDashboardHandler(p.DashboardService)
	exportHandler := NewExportHandler(p.ExportService)
	metricsHandler := NewMetricsHandler(p.Metrics)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", readiness(p.DB, p.Redis))
	r.GET("/metrics", metricsHandler.Prometheus)
	if p.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(p.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(p.AuthService), authHandler.Logout)
		auth.GET("/me", middleware.JWT(p.AuthService), authHandler.Me)
	}

	// Every route below requires a valid token and an approved account.
	protected := api.Group("")
	protected.Use(middleware.JWT(p.AuthService), middleware.ApprovalGuard(p.UserService))

	staff := middleware.RequireRoles(models.RoleMember, models.RoleAdmin)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	equipment := protected.Group("/equipment")
	{
		equipment.GET("", equipmentHandler.List)
		equipment.GET("/categories", equipmentHandler.Categories)
		equipment.GET("/:id", equipmentHandler.Get)
		equipment.POST("", adminOnly, equipmentHandler.Create)
		equipment.PATCH("/:id", adminOnly, equipmentHandler.Update)
	}

	semesters := protected.Group("/semesters")
	{
		semesters.GET("", semesterHandler.List)
		semesters.GET("/active", semesterHandler.GetActive)
		semesters.GET("/:id", semesterHandler.Get)
		semesters.POST("", adminOnly, semesterHandler.Create)
		semesters.PUT("/:id", adminOnly, semesterHandler.Update)
		semesters.POST("/:id/activate", adminOnly, semesterHandler.SetActive)
	}

	requests := protected.Group("/requests")
	{
		requests.GET("", requestHandler.List)
		requests.GET("/pending/count", requestHandler.PendingCount)
		requests.GET("/:id", requestHandler.Get)
		requests.POST("", middleware.RequireRoles(models.RoleStudent), requestHandler.Submit)
		requests.POST("/:id/approve", staff, requestHandler.Approve)
		requests.POST("/:id/reject", staff, requestHandler.Reject)
	}

	rentals := protected.Group("/rentals")
	{
		rentals.GET("", rentalHandler.List)
		rentals.GET("/overdue", staff, rentalHandler.Overdue)
		rentals.GET("/overdue/count", rentalHandler.OverdueCount)
		rentals.GET("/:id", rentalHandler.Get)
		rentals.POST("", staff, rentalHandler.Create)
		rentals.POST("/:id/return", staff, rentalHandler.Return)
	}

	users := protected.Group("/users")
	{
		users.GET("", adminOnly, userHandler.List)
		users.GET("/pending", adminOnly, userHandler.Pending)
		// Members may read their own profile; everything else stays admin-only.
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
		users.POST("/:id/approve", adminOnly, userHandler.Approve)
		users.POST("/:id/reject", adminOnly, userHandler.Reject)
	}

	audit := protected.Group("/audit")
	{
		audit.GET("", staff, auditHandler.History)
		audit.GET("/me", auditHandler.MyHistory)
	}

	protected.GET("/dashboard/stats", staff, dashboardHandler.Stats)

	export := protected.Group("/export")
	export.Use(staff)
	{
		export.GET("/rentals", exportHandler.Rentals)
		export.GET("/inventory", exportHandler.Inventory)
		export.GET("/audit", exportHandler.AuditLog)
	}

	return r
}

func readiness(db *sqlx.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
				return
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
