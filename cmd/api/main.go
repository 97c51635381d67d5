// Package main is the entry point for the account service API server.
// Пакет main является точкой входа для API сервера сервиса аккаунтов.
//
// The service provides authentication with two-factor challenges, session
// management, password lifecycle and a security audit trail.
// Сервис предоставляет аутентификацию с двухфакторными вызовами,
// управление сессиями, жизненный цикл паролей и журнал аудита безопасности.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	rediscache "github.com/andrewhigh08/account-core/internal/adapter/cache/redis"
	"github.com/andrewhigh08/account-core/internal/adapter/http/handler"
	"github.com/andrewhigh08/account-core/internal/adapter/http/middleware"
	"github.com/andrewhigh08/account-core/internal/adapter/notify"
	postgresrepo "github.com/andrewhigh08/account-core/internal/adapter/repository/postgres"
	"github.com/andrewhigh08/account-core/internal/config"
	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/pkg/telemetry"
	"github.com/andrewhigh08/account-core/internal/port"
	"github.com/andrewhigh08/account-core/internal/service"

	// Swagger docs / Документация Swagger.
	_ "github.com/andrewhigh08/account-core/docs"
)

// handlers bundles the HTTP handlers for router setup.
// handlers объединяет HTTP обработчики для настройки роутера.
type handlers struct {
	health    *handler.HealthHandler
	auth      *handler.AuthHandler
	twoFactor *handler.TwoFactorHandler
	session   *handler.SessionHandler
	admin     *handler.AdminHandler
	user      *handler.UserHandler
}

// services bundles the service ports the router middleware depends on.
// services объединяет порты сервисов, от которых зависит middleware роутера.
type services struct {
	auth  port.AuthService
	audit port.AuditService
}

// main is the application entry point.
// main является точкой входа приложения.
//
// Initializes all dependencies and starts the HTTP server with graceful shutdown.
// Инициализирует все зависимости и запускает HTTP сервер с graceful shutdown.
func main() {
	configHelp := flag.Bool("config-help", false, "print the environment variables the service reads and exit")
	flag.Parse()
	if *configHelp {
		help, err := config.GetDescription()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(help)
		return
	}

	// Load configuration / Загружаем конфигурацию
	// MustLoad panics if config is invalid, which is desired at startup
	// MustLoad паникует при невалидном конфиге, что желательно при запуске
	cfg := config.MustLoad()

	// Initialize logger / Инициализируем логгер
	log := logger.New(logger.Config{
		Level:     getEnv("LOG_LEVEL", "info"),
		Format:    getEnv("LOG_FORMAT", "json"),
		AddSource: true,
	})
	logger.SetDefault(log)

	// Initialize telemetry / Инициализируем телеметрию
	telemetryCfg := telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.Telemetry.Environment,
	}
	tp, err := telemetry.InitTelemetry(context.Background(), telemetryCfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
	} else if cfg.Telemetry.Enabled {
		log.Info("telemetry initialized", "endpoint", cfg.Telemetry.OTLPEndpoint)
	}

	// Initialize database connection / Инициализируем подключение к БД
	db, err := initDB(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}

	// Initialize Redis connection / Инициализируем подключение к Redis
	redisClient := initRedis(cfg, log)

	// Wall clock for every expiry computation in the service layer
	// Системные часы для всех вычислений истечения в сервисном слое
	clk := clock.System{}

	// Initialize caches / Инициализируем кэши
	ticketCache := rediscache.NewTicketCache(redisClient)
	otpCache := rediscache.NewOTPCache(redisClient)
	rateLimitCache := rediscache.NewRateLimitCache(redisClient)

	// Initialize repositories / Инициализируем репозитории
	userRepo := postgresrepo.NewUserRepository(db)
	auditRepo := postgresrepo.NewAuditRepository(db)
	attemptRepo := postgresrepo.NewLoginAttemptRepository(db)
	ipRuleRepo := postgresrepo.NewIPRuleRepository(db)
	historyRepo := postgresrepo.NewPasswordHistoryRepository(db)
	policyRepo := postgresrepo.NewPolicyRepository(db)
	sessionRepo := postgresrepo.NewSessionRepository(db)
	twoFactorRepo := postgresrepo.NewTwoFactorRepository(db)
	txManager := postgresrepo.NewTransactionManager(db)

	// Initialize services. Audit comes first; the policy service is bound
	// to it afterwards because the two reference each other.
	// Инициализируем сервисы. Аудит создаётся первым; сервис политики
	// привязывается к нему после, так как они ссылаются друг на друга.
	auditService := service.NewAuditService(auditRepo, clk, log)

	policyService, err := service.NewPolicyService(context.Background(), policyRepo, auditService, clk, log)
	if err != nil {
		log.Fatal("failed to initialize policy service", "error", err)
	}
	auditService.BindPolicy(policyService)

	notifier := notify.NewWebhookNotifier(cfg.Notifier.WebhookURL, log)

	credentialService := service.NewCredentialService(userRepo, historyRepo, policyService, txManager, clk, log)
	twoFactorService := service.NewTwoFactorService(twoFactorRepo, userRepo, otpCache, policyService, auditService, notifier, txManager, clk, log)
	riskService := service.NewRiskService(attemptRepo, ipRuleRepo, sessionRepo, policyService, auditService, txManager, clk, log)
	sessionService := service.NewSessionService(sessionRepo, policyService, auditService, txManager, clk, log)

	authServiceCfg := service.AuthServiceConfig{
		PrivateKeyPath: cfg.Auth.PrivateKeyPath,
		PublicKeyPath:  cfg.Auth.PublicKeyPath,
		DevMode:        cfg.DevMode,
	}
	authService, err := service.NewAuthService(
		userRepo, credentialService, twoFactorService, riskService,
		sessionService, auditService, policyService,
		ticketCache, notifier, clk, authServiceCfg, log,
	)
	if err != nil {
		log.Fatal("failed to initialize auth service", "error", err)
	}

	userService := service.NewUserService(userRepo, credentialService, sessionService, auditService, log)

	// Initialize HTTP handlers / Инициализируем HTTP обработчики
	h := handlers{
		health:    handler.NewHealthHandler(db, redisClient),
		auth:      handler.NewAuthHandler(authService, credentialService, policyService, cfg.Server.SecureCookies, log),
		twoFactor: handler.NewTwoFactorHandler(authService, twoFactorService, cfg.Server.SecureCookies, log),
		session:   handler.NewSessionHandler(sessionService, log),
		admin:     handler.NewAdminHandler(auditService, policyService, riskService, ipRuleRepo, log),
		user:      handler.NewUserHandler(userService, auditService, log),
	}
	svcs := services{auth: authService, audit: auditService}

	// Initialize rate limiters. The in-process limiter guards the whole
	// surface; login paths go through Redis so attempt counts are shared
	// across instances.
	// Инициализируем ограничители частоты. Локальный ограничитель защищает
	// всю поверхность; пути входа идут через Redis, чтобы счётчики попыток
	// разделялись между экземплярами.
	rateLimitCfg := middleware.DefaultRateLimitConfig()
	rateLimiter := middleware.NewIPRateLimiter(rateLimitCfg)
	loginLimiter := middleware.NewRedisRateLimiter(rateLimitCache, rateLimitCfg)

	// Setup router with all routes / Настраиваем роутер со всеми маршрутами
	securityCfg := middleware.DefaultSecurityConfig()
	if !cfg.DevMode {
		securityCfg = middleware.ProductionSecurityConfig(cfg.Server.AllowedOrigins)
	}
	router := setupRouter(h, svcs, securityCfg, rateLimiter, loginLimiter, log)

	// Seed database with initial data / Заполняем БД начальными данными
	seeder := service.NewSeeder(db, clk, log)
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Error("failed to seed database", "error", err)
	}

	// Background maintenance: stale session sweep and audit retention
	// Фоновое обслуживание: очистка устаревших сессий и ретенция аудита
	cleanupCtx, stopCleanups := context.WithCancel(context.Background())
	go runCleanups(cleanupCtx, sessionService, auditService, log)

	// Configure HTTP server / Настраиваем HTTP сервер
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second, // Max time to read request / Макс. время чтения запроса
		WriteTimeout: 15 * time.Second, // Max time to write response / Макс. время записи ответа
		IdleTimeout:  60 * time.Second, // Max time for keep-alive / Макс. время keep-alive
	}

	// Start server in goroutine / Запускаем сервер в горутине
	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", "error", err)
		}
	}()

	// Graceful shutdown handling / Обработка graceful shutdown
	// Wait for interrupt signal / Ожидаем сигнал прерывания
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	stopCleanups()

	// Give outstanding requests time to complete
	// Даём время на завершение текущих запросов
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	// Shutdown telemetry / Завершаем телеметрию
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("failed to shutdown telemetry", "error", err)
		}
	}

	// Close database connection / Закрываем подключение к БД
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	// Close Redis connection / Закрываем подключение к Redis
	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Info("server exited properly")
}

// initDB initializes the PostgreSQL database connection with connection pooling.
// initDB инициализирует подключение к PostgreSQL с пулом соединений.
func initDB(cfg *config.Config, log *logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool / Настраиваем пул соединений
	sqlDB.SetMaxIdleConns(10)           // Max idle connections / Макс. простаивающих соединений
	sqlDB.SetMaxOpenConns(100)          // Max open connections / Макс. открытых соединений
	sqlDB.SetConnMaxLifetime(time.Hour) // Connection max lifetime / Макс. время жизни соединения

	// Verify connection with ping / Проверяем соединение пингом
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Sync schema / Синхронизируем схему
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.PasswordRecord{},
		&domain.TOTPDevice{},
		&domain.BackupCode{},
		&domain.Session{},
		&domain.FailedLoginAttempt{},
		&domain.IPRule{},
		&domain.AuditEvent{},
		&domain.SecurityPolicy{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("database connection established")
	return db, nil
}

// initRedis initializes the Redis client connection.
// initRedis инициализирует подключение клиента Redis.
func initRedis(cfg *config.Config, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Verify connection / Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := client.Ping(ctx).Err(); err != nil {
		cancel()
		log.Fatal("failed to connect to Redis", "error", err)
	}
	cancel()

	log.Info("redis connection established")
	return client
}

// runCleanups periodically sweeps stale sessions and expired audit events.
// runCleanups периодически очищает устаревшие сессии и истёкшие события аудита.
func runCleanups(ctx context.Context, sessions port.SessionService, audit port.AuditService, log *logger.Logger) {
	sessionTicker := time.NewTicker(time.Hour)
	auditTicker := time.NewTicker(24 * time.Hour)
	defer sessionTicker.Stop()
	defer auditTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sessionTicker.C:
			if n, err := sessions.CleanupStale(ctx); err != nil {
				log.Error("session cleanup failed", "error", err)
			} else if n > 0 {
				log.Info("stale sessions removed", "count", n)
			}
		case <-auditTicker.C:
			if n, err := audit.CleanupExpired(ctx); err != nil {
				log.Error("audit cleanup failed", "error", err)
			} else if n > 0 {
				log.Info("expired audit events removed", "count", n)
			}
		}
	}
}

// setupRouter configures the Gin router with all routes and middleware.
// setupRouter настраивает роутер Gin со всеми маршрутами и middleware.
func setupRouter(
	h handlers,
	svcs services,
	securityCfg middleware.SecurityConfig,
	rateLimiter *middleware.IPRateLimiter,
	loginLimiter *middleware.RedisRateLimiter,
	log *logger.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Configure trusted proxies to prevent IP spoofing via X-Forwarded-For
	// Настраиваем доверенные прокси для предотвращения IP-спуфинга через X-Forwarded-For
	// Only trust localhost proxies by default. Add your load balancer IPs in production.
	// По умолчанию доверяем только localhost прокси. Добавьте IP балансировщика в продакшене.
	if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		logger.Default().Error("failed to set trusted proxies", "error", err)
	}

	// Global middleware / Глобальные middleware
	router.Use(gin.Recovery())                              // Panic recovery / Восстановление после паники
	router.Use(middleware.RequestID())                      // Request ID / ID запроса
	router.Use(middleware.SecurityHeaders(securityCfg))     // Security headers / Заголовки безопасности
	router.Use(middleware.CORS(securityCfg))                // CORS / Кросс-доменные запросы
	router.Use(middleware.RateLimitMiddleware(rateLimiter)) // Global rate limiting / Глобальное ограничение частоты
	router.Use(middleware.Metrics())                        // Prometheus metrics / Метрики Prometheus
	router.Use(requestLogger())                             // Request logging / Логирование запросов

	// Health check endpoints for Kubernetes probes
	// Эндпоинты проверки здоровья для Kubernetes проб
	router.GET("/health", h.health.Health)
	router.GET("/health/live", h.health.Live)
	router.GET("/health/ready", h.health.Ready)

	// Metrics endpoint for Prometheus / Эндпоинт метрик для Prometheus
	handler.RegisterMetrics(router)

	// Swagger documentation / Документация Swagger
	handler.RegisterSwagger(router)

	// Public authentication endpoints / Публичные эндпоинты аутентификации
	auth := router.Group("/auth")
	auth.Use(middleware.NoCache())
	// Login has stricter rate limiting to prevent brute-force attacks
	// Login имеет более строгий лимит для защиты от brute-force атак
	auth.POST("/login", middleware.RedisLoginRateLimitMiddleware(loginLimiter), h.auth.Login)
	auth.POST("/logout", h.auth.Logout)
	auth.POST("/signup", h.auth.Signup)

	// Pending-login completions carry their own ticket; no session yet
	// Завершения ожидающего входа несут собственный тикет; сессии ещё нет
	auth.POST("/2fa/send-code", h.twoFactor.SendCode)
	auth.POST("/2fa/verify-login", middleware.RedisLoginRateLimitMiddleware(loginLimiter), h.twoFactor.VerifyLogin)
	auth.POST("/2fa/verify-backup-code", middleware.RedisLoginRateLimitMiddleware(loginLimiter), h.twoFactor.VerifyBackupCode)
	auth.POST("/2fa/setup/start", h.twoFactor.SetupStart)
	auth.POST("/2fa/setup/verify", middleware.RedisLoginRateLimitMiddleware(loginLimiter), h.twoFactor.SetupVerify)
	auth.POST("/password/expired-change", h.auth.CompleteExpiredPasswordChange)

	auth.POST("/password/request-reset", h.auth.RequestPasswordReset)
	auth.POST("/password/reset/:uid/:token", h.auth.ResetPassword)
	auth.GET("/password-policy", h.auth.GetPasswordPolicy)
	auth.POST("/password/validate", h.auth.ValidatePassword)

	// Authenticated endpoints / Аутентифицированные эндпоинты
	authed := router.Group("/auth")
	authed.Use(middleware.NoCache())
	authed.Use(middleware.RequireAuth(svcs.auth, log))
	authed.GET("/me", h.user.GetMe)
	authed.GET("/login-history", h.user.GetLoginHistory)
	authed.POST("/password/change", h.auth.ChangePassword)
	authed.POST("/2fa/enable", h.twoFactor.Enable)
	authed.POST("/2fa/verify-enable", h.twoFactor.VerifyEnable)
	authed.POST("/2fa/disable", h.twoFactor.Disable)
	authed.POST("/2fa/backup-codes/regenerate", h.twoFactor.RegenerateBackupCodes)
	authed.GET("/sessions", h.session.List)
	authed.POST("/sessions/terminate-others", h.session.TerminateOthers)
	authed.POST("/sessions/:key/terminate", h.session.Terminate)

	// Administrative endpoints / Административные эндпоинты
	admin := router.Group("/admin")
	admin.Use(middleware.RequireAuth(svcs.auth, log))
	admin.Use(middleware.RequireStaff(svcs.audit, log))
	admin.GET("/users", h.user.ListUsers)
	admin.GET("/users/:id", h.user.GetUser)
	admin.POST("/users", h.user.CreateUser)
	admin.PATCH("/users/:id/active", h.user.SetUserActive)
	admin.PATCH("/users/:id/role", h.user.ChangeUserRole)
	admin.GET("/audit-logs", h.admin.ListAuditLogs)
	admin.POST("/unlock-account", h.admin.UnlockAccount)

	// Security configuration is superuser-only / Настройка безопасности
	// доступна только суперпользователю
	superuser := router.Group("/admin")
	superuser.Use(middleware.RequireAuth(svcs.auth, log))
	superuser.Use(middleware.RequireSuperuser(svcs.audit, log))
	superuser.GET("/ip-allowlist", h.admin.ListAllowlist)
	superuser.POST("/ip-allowlist", h.admin.AddAllowlistEntry)
	superuser.DELETE("/ip-allowlist/:id", h.admin.DeleteAllowlistEntry)
	superuser.GET("/ip-denylist", h.admin.ListDenylist)
	superuser.POST("/ip-denylist", h.admin.AddDenylistEntry)
	superuser.DELETE("/ip-denylist/:id", h.admin.DeleteDenylistEntry)
	superuser.GET("/security-settings", h.admin.GetSecuritySettings)
	superuser.PATCH("/security-settings", h.admin.UpdateSecuritySettings)

	return router
}

// requestLogger returns a middleware that logs HTTP requests.
// requestLogger возвращает middleware, которое логирует HTTP запросы.
func requestLogger() gin.HandlerFunc {
	log := logger.Default()
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		// Process request / Обрабатываем запрос
		c.Next()

		// Log after request completion / Логируем после завершения запроса
		log.LogRequest(
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
		)
	}
}

// getEnv returns environment variable value or default if not set.
// getEnv возвращает значение переменной окружения или значение по умолчанию.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
