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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/audit"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/handler"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/middleware"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/scheduler"
	"github.com/Phantom-bronze/UserModule/internal/auth/jwt"
	"github.com/Phantom-bronze/UserModule/internal/auth/storage"
	"github.com/Phantom-bronze/UserModule/internal/common/config"
	"github.com/Phantom-bronze/UserModule/internal/crypto"
	"github.com/Phantom-bronze/UserModule/internal/mail"
	"github.com/Phantom-bronze/UserModule/pkg/logger"
	"github.com/Phantom-bronze/UserModule/pkg/metrics"
	"github.com/Phantom-bronze/UserModule/pkg/trace"
	"github.com/Phantom-bronze/UserModule/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of apiserver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apiserver version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "apiserver",
		Short: "Signage API Server",
		Long:  `Multi-tenant backend for digital signage: companies, users, invitations and paired displays`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "configs/apiserver.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	lg.Info("starting apiserver", zap.String("version", version.Get()))

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		lg.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	vault, err := crypto.NewVault(&cfg.Crypto)
	if err != nil {
		lg.Fatal("failed to initialize crypto vault", zap.Error(err))
	}

	jwtSvc, err := jwt.NewService(cfg.JWT)
	if err != nil {
		lg.Fatal("failed to initialize JWT service", zap.Error(err))
	}

	tokenStore, err := storage.NewTokenStore(&cfg.TokenStore)
	if err != nil {
		lg.Fatal("failed to initialize token store", zap.Error(err))
	}
	defer func() { _ = tokenStore.Close() }()

	var mailer mail.Mailer
	if cfg.SMTP.Host != "" {
		mailer, err = mail.NewSMTPMailer(cfg.SMTP, lg)
		if err != nil {
			lg.Fatal("failed to initialize mailer", zap.Error(err))
		}
	} else {
		mailer = mail.NewNopMailer(lg)
	}

	if cfg.Trace.Enabled {
		shutdown, err := trace.InitTracing(context.Background(), &cfg.Trace, lg)
		if err != nil {
			lg.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	m := metrics.New(cfg.Metrics)
	recorder := audit.NewRecorder(db, lg)

	sweeper := scheduler.NewSweeper(db, recorder, m, &cfg.Device, lg)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	router := buildRouter(cfg, db, vault, jwtSvc, tokenStore, mailer, recorder, m, lg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		lg.Info("listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error("forced shutdown", zap.Error(err))
	}
}

func buildRouter(cfg *config.APIServerConfig, db database.Database, vault *crypto.Vault, jwtSvc *jwt.Service, tokenStore storage.TokenStore, mailer mail.Mailer, recorder *audit.Recorder, m *metrics.Metrics, lg *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(m.Middleware())
	if cfg.Trace.Enabled {
		serviceName := cfg.Trace.ServiceName
		if serviceName == "" {
			serviceName = "signage-apiserver"
		}
		router.Use(otelgin.Middleware(serviceName))
	}

	authHandler := handler.NewAuth(db, jwtSvc, tokenStore, recorder, m, cfg, lg)
	tenantHandler := handler.NewTenant(db, recorder, lg)
	userHandler := handler.NewUser(db, recorder, lg)
	invitationHandler := handler.NewInvitation(db, mailer, recorder, cfg, lg)
	deviceHandler := handler.NewDevice(db, recorder, m, cfg, lg)
	credentialHandler := handler.NewCredential(db, vault, recorder, lg)
	auditHandler := handler.NewAuditLog(db, lg)

	router.GET("/health", handler.Health)
	router.GET("/health/ready", handler.Ready(db))
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	authRequired := middleware.JWTAuth(jwtSvc, db, lg)
	superAdminOnly := middleware.RequireRoles(lg, database.RoleSuperAdmin)
	adminOrAbove := middleware.RequireRoles(lg, database.RoleSuperAdmin, database.RoleAdmin)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.GET("/google/login", authHandler.GoogleLogin)
			auth.POST("/google/callback", authHandler.GoogleCallback)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authRequired, authHandler.Logout)
			auth.GET("/me", authRequired, authHandler.Me)
			auth.GET("/verify", authRequired, authHandler.Verify)
		}

		devices := api.Group("/devices")
		{
			// Device-facing, unauthenticated.
			devices.POST("/register", deviceHandler.Register)
			devices.POST("/heartbeat", deviceHandler.Heartbeat)

			devices.POST("/link", authRequired, deviceHandler.Link)
			devices.GET("", authRequired, deviceHandler.List)
			devices.GET("/:id", authRequired, deviceHandler.Get)
			devices.PUT("/:id", authRequired, deviceHandler.Update)
			devices.POST("/:id/unlink", authRequired, deviceHandler.Unlink)
			devices.DELETE("/:id", authRequired, deviceHandler.Delete)
		}

		tenants := api.Group("/tenants", authRequired)
		{
			tenants.POST("", superAdminOnly, tenantHandler.Create)
			tenants.GET("", tenantHandler.List)
			tenants.GET("/:id", tenantHandler.Get)
			tenants.GET("/:id/stats", tenantHandler.Stats)
			tenants.PUT("/:id", adminOrAbove, tenantHandler.Update)
			tenants.POST("/:id/activate", superAdminOnly, tenantHandler.Activate)
			tenants.POST("/:id/deactivate", superAdminOnly, tenantHandler.Deactivate)
			tenants.DELETE("/:id", superAdminOnly, tenantHandler.Delete)
		}

		users := api.Group("/users", authRequired)
		{
			users.GET("", adminOrAbove, userHandler.List)
			users.PUT("/me/profile", userHandler.UpdateProfile)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id", adminOrAbove, userHandler.Update)
			users.DELETE("/:id", adminOrAbove, userHandler.Delete)
		}

		invitations := api.Group("/invitations")
		{
			invitations.GET("/preview", invitationHandler.Preview)
			invitations.POST("", authRequired, adminOrAbove, invitationHandler.Create)
			invitations.GET("", authRequired, adminOrAbove, invitationHandler.List)
			invitations.DELETE("/:id", authRequired, adminOrAbove, invitationHandler.Cancel)
		}

		credentials := api.Group("/credentials", authRequired)
		{
			credentials.POST("", adminOrAbove, credentialHandler.Upload)
			credentials.GET("/:tenantId", credentialHandler.Get)
			credentials.DELETE("/:tenantId", adminOrAbove, credentialHandler.Delete)
		}

		admin := api.Group("/admin", authRequired, superAdminOnly)
		{
			admin.GET("/audit-logs", auditHandler.List)
			admin.POST("/rotate-key", credentialHandler.RotateKey)
		}
	}

	return router
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
