package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/api/handlers"
	"github.com/hostwarden/backend/internal/api/middleware"
	"github.com/hostwarden/backend/internal/bruteforce"
	"github.com/hostwarden/backend/internal/config"
	"github.com/hostwarden/backend/internal/daemon"
	"github.com/hostwarden/backend/internal/database"
	"github.com/hostwarden/backend/internal/logger"
	"github.com/hostwarden/backend/internal/models"
	"github.com/hostwarden/backend/internal/notify"
	"github.com/hostwarden/backend/internal/plugin"
	"github.com/hostwarden/backend/internal/services"
	"github.com/hostwarden/backend/internal/version"
)

// Register wires up API routes and performs automatic migrations.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config) error {
	if err := database.Migrate(db); err != nil {
		return err
	}

	manager, err := setupPlugins(db, cfg)
	if err != nil {
		return err
	}
	notifier := func() daemon.Notifier { return daemon.NewClient(cfg.Daemon, version.Version) }

	router.GET("/api/v1/health", handlers.NewHealthHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")

	authService := services.NewAuthService(db, cfg, manager)
	authHandler := handlers.NewAuthHandler(authService)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(authService))
	protected.GET("/auth/me", authHandler.Me)
	protected.POST("/auth/change-password", authHandler.ChangePassword)

	php := handlers.NewPhpHandler(db, notifier)
	admins := protected.Group("/", middleware.RequireRole(models.AdminTypeAdmin))
	admins.GET("/resellers/:id/php", php.GetReseller)
	admins.PUT("/resellers/:id/php", php.UpdateReseller)

	owners := protected.Group("/", middleware.RequireRole(models.AdminTypeAdmin, models.AdminTypeReseller))
	owners.GET("/clients/:id/php", php.GetClient)
	owners.PUT("/clients/:id/php", php.UpdateClient)

	// Ownership of the client is checked by the handler for every role.
	protected.GET("/clients/:id/domains/:type/:domain_id/php", php.GetDomain)
	protected.PUT("/clients/:id/domains/:type/:domain_id/php", php.UpdateDomain)

	pluginHandler := handlers.NewPluginHandler(manager, notifier)
	admins.GET("/plugins", pluginHandler.List)
	admins.POST("/plugins/:name/:action", pluginHandler.Run)

	return nil
}

// setupPlugins registers the built-in plugins. The bruteforce plugin is
// installed on first start when the protection is enabled.
func setupPlugins(db *gorm.DB, cfg config.Config) (*plugin.Manager, error) {
	var alerts notify.Sender
	if s := notify.New(cfg.Bruteforce.AlertURL); s.Enabled() {
		alerts = s
	}

	manager := plugin.NewManager(db)
	if err := manager.Register(bruteforce.NewPlugin(db, cfg.Bruteforce, alerts)); err != nil {
		return nil, fmt.Errorf("register bruteforce plugin: %w", err)
	}
	status, err := manager.Status(bruteforce.PluginName)
	if err != nil {
		return nil, err
	}
	if cfg.Bruteforce.Enabled && status == plugin.StatusUninstalled {
		if err := manager.Install(bruteforce.PluginName); err != nil {
			return nil, fmt.Errorf("install bruteforce plugin: %w", err)
		}
		logger.Log().Info("bruteforce protection installed")
	}
	return manager, nil
}
