package router

import (
	"time"

	"trebolsoft/internal/config"
	"trebolsoft/internal/handler"
	"trebolsoft/internal/middleware"
	"trebolsoft/internal/repository"
	"trebolsoft/internal/service"
	"trebolsoft/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
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
	clienteRepo := repository.NewClienteRepository(db)
	movimientoRepo := repository.NewMovimientoRepository(db)
	cierreRepo := repository.NewCierreRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	clienteSvc := service.NewClienteService(clienteRepo)

	proyector := service.NewProyector(movimientoRepo, cierreRepo)
	cajaSvc := service.NewCajaService(movimientoRepo, cierreRepo, usuarioRepo, proyector)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	cierreSvc := service.NewCierreService(cajaSvc, movimientoRepo, cierreRepo, proyector, dispatcher)
	voladoSvc := service.NewVoladoService(cajaSvc, movimientoRepo, clienteRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	clientesH := handler.NewClientesHandler(clienteSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	cierreH := handler.NewCierreHandler(cierreSvc)
	voladosH := handler.NewVoladoHandler(voladoSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

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
		// Roles: cobrador, supervisor, administrador — declared per-endpoint.
		// Route-level roles are coarse; the fine-grained caller/operator matrix
		// lives in the services.
		caja := v1.Group("/caja")
		{
			caja.GET("/saldo", middleware.RequireRole("cobrador", "supervisor", "administrador"), cajaH.Saldo)
			caja.GET("/movimientos", middleware.RequireRole("cobrador", "supervisor", "administrador"), cajaH.Movimientos)
			caja.POST("/movimientos", middleware.RequireRole("cobrador", "supervisor", "administrador"), cajaH.RegistrarMovimiento)
			caja.POST("/transferencias", middleware.RequireRole("supervisor", "administrador"), cajaH.Transferir)

			caja.GET("/cierre/info", middleware.RequireRole("cobrador", "supervisor", "administrador"), cierreH.Previa)
			caja.POST("/cierre", middleware.RequireRole("cobrador", "supervisor", "administrador"), cierreH.Confirmar)
			caja.GET("/cierres", middleware.RequireRole("cobrador", "supervisor", "administrador"), cierreH.Historial)

			caja.GET("/volados", middleware.RequireRole("cobrador", "supervisor", "administrador"), voladosH.Listar)
			caja.POST("/volados", middleware.RequireRole("supervisor", "administrador"), voladosH.Marcar)
			caja.POST("/volados/recuperacion", middleware.RequireRole("cobrador", "supervisor", "administrador"), voladosH.Recuperar)
		}

		// Clientes — all roles read, supervisor/administrador write
		v1.GET("/clientes", middleware.RequireRole("cobrador", "supervisor", "administrador"), clientesH.Listar)
		v1.GET("/clientes/:id", middleware.RequireRole("cobrador", "supervisor", "administrador"), clientesH.Obtener)
		clientes := v1.Group("/clientes", middleware.RequireRole("supervisor", "administrador"))
		{
			clientes.POST("", clientesH.Crear)
			clientes.PUT("/:id", clientesH.Actualizar)
			clientes.DELETE("/:id", clientesH.Desactivar)
		}

		usuarios := v1.Group("/usuarios", middleware.RequireRole("administrador"))
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Actualizar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
			usuarios.PATCH("/:id/reactivar", usuariosH.Reactivar)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
