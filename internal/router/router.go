package router

import (
	_ "embed"
	"net/http"
	"time"

	"spazatrack/internal/authz"
	"spazatrack/internal/config"
	"spazatrack/internal/handler"
	"spazatrack/internal/infra"
	"spazatrack/internal/metrics"
	"spazatrack/internal/middleware"
	"spazatrack/internal/repository"
	"spazatrack/internal/security"
	"spazatrack/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

//go:embed openapi.yaml
var openAPISpec []byte

// Deps are the long-lived infrastructure handles created by the composition
// root. Mailer, Metrics and Alerts may be nil.
type Deps struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Mailer  *infra.Mailer
	Metrics *metrics.Metrics
	Alerts  service.AlertQueue
	// Now overrides the service clock; tests pin it.
	Now func() time.Time
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	db, rdb := deps.DB, deps.Redis

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origins()))
	r.Use(deps.Metrics.Middleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(rdb, middleware.RateLimitConfig{Name: "api", Limit: 1000, Window: time.Minute}))

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	shopRepo := repository.NewShopRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// ── Security ─────────────────────────────────────────────────────────────
	tokens := security.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour)
	if deps.Now != nil {
		tokens = tokens.WithClock(deps.Now)
	}
	revocations := security.NewRevocationStore(rdb)
	guard := authz.NewGuard(tokens, userRepo, revocations)

	// ── Services ─────────────────────────────────────────────────────────────
	opts := service.Options{Now: deps.Now, Location: loc, OpTimeout: cfg.DBOperationTimeout}
	journal := service.NewJournal(activityRepo, deps.Now)

	authSvc := service.NewAuthService(db, userRepo, shopRepo, journal,
		security.NewBcryptHasher(cfg.BcryptCost), tokens, guard, revocations, opts)
	productSvc := service.NewProductService(db, productRepo, journal, opts)
	saleSvc := service.NewSaleService(db, productRepo, saleRepo, journal, deps.Alerts, deps.Metrics, cfg.LowStockThreshold, opts)
	statsSvc := service.NewStatsService(productRepo, saleRepo, cfg.LowStockThreshold, cfg.RecentSalesLimit, opts)
	activitySvc := service.NewActivityService(activityRepo, cfg.ActivityDefaultLimit, opts)
	reportSvc := service.NewReportService(shopRepo, saleRepo, opts)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	productsH := handler.NewProductsHandler(productSvc)
	salesH := handler.NewSalesHandler(saleSvc, reportSvc)
	dashH := handler.NewDashboardHandler(statsSvc, activitySvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/api/health", handler.Health(db, rdb, deps.Mailer))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	authLimit := middleware.RateLimiter(rdb, middleware.LoginRateLimit)
	authenticated := middleware.RequireCapability(guard, authz.Authenticated)
	adminOnly := middleware.RequireCapability(guard, authz.AdminOnly)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authLimit, authH.Register)
		auth.POST("/login", authLimit, authH.Login)
		auth.POST("/logout", authenticated, authH.Logout)
		auth.GET("/me", authenticated, authH.Me)
	}

	users := r.Group("/api/users", adminOnly)
	{
		users.POST("", usersH.Create)
		users.GET("", usersH.List)
		users.PATCH("/:id/active", usersH.SetActive)
	}

	api := r.Group("/api", authenticated)
	{
		api.GET("/products", productsH.List)
		api.GET("/products/:id", productsH.Get)
		api.POST("/products", productsH.Create)
		api.PUT("/products/:id", productsH.UpdateQuantity)
		api.DELETE("/products/:id", productsH.Delete)

		api.POST("/sales", salesH.Record)
		api.GET("/sales", salesH.List)
		api.GET("/reports/sales", salesH.Report)

		api.GET("/stats", dashH.Stats)
	}

	r.GET("/api/activity", adminOnly, dashH.Activity)

	// Swagger UI over the bundled OpenAPI document, outside production only
	if cfg.Env != "production" {
		r.GET("/api/openapi.yaml", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/yaml", openAPISpec)
		})
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/api/openapi.yaml")))
	}

	return r, nil
}
