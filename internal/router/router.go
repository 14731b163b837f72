package router

import (
	"time"

	"cajadiaria/internal/config"
	"cajadiaria/internal/handler"
	"cajadiaria/internal/infra"
	"cajadiaria/internal/middleware"
	"cajadiaria/internal/repository"
	"cajadiaria/internal/service"
	"cajadiaria/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	cajaRepo := repository.NewCajaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)

	// Worker dispatcher — injected into the caja service to enqueue closing
	// summaries after a successful cierre.
	dispatcher := worker.NewDispatcher(rdb)

	cajaSvc := service.NewCajaService(cajaRepo, service.NewConciliacion(), dispatcher)
	historialSvc := service.NewHistorialService(cajaRepo, rdb)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	historialH := handler.NewHistorialHandler(historialSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, smtpCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cajero, supervisor, administrador — declared per-endpoint
		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", middleware.RequireRole("cajero", "supervisor", "administrador"), cajaH.Abrir)
			caja.POST("/movimiento", middleware.RequireRole("cajero", "supervisor", "administrador"), cajaH.RegistrarMovimiento)
			caja.POST("/arqueo", middleware.RequireRole("cajero", "supervisor", "administrador"), cajaH.ArqueoParcial)
			caja.POST("/cerrar", middleware.RequireRole("cajero", "supervisor", "administrador"), cajaH.Cerrar)
			caja.GET("/activa", middleware.RequireRole("cajero", "supervisor", "administrador"), cajaH.GetActiva)
			caja.GET("/:id/resumen", middleware.RequireRole("cajero", "supervisor", "administrador"), cajaH.Resumen)

			// Audit views — supervisores y administradores
			caja.GET("/historial", middleware.RequireRole("supervisor", "administrador"), historialH.Listar)
			caja.GET("/:id", middleware.RequireRole("supervisor", "administrador"), historialH.Detalle)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
