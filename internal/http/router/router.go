package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/citesignal-backend/internal/cache"
	"github.com/ignatzorin/citesignal-backend/internal/config"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/http/handlers"
	"github.com/ignatzorin/citesignal-backend/internal/http/middleware"
)

// authRequestsPerPeriod лимит попыток входа и регистрации с одного IP.
const authRequestsPerPeriod = 5

// Handlers все HTTP хэндлеры приложения.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Incidents     *handlers.IncidentHandler
	Statistics    *handlers.StatisticsHandler
	Notifications *handlers.NotificationHandler
	References    *handlers.ReferenceHandler
	Admin         *handlers.AdminHandler
	Health        *handlers.HealthHandler
	WS            *handlers.WSHandler
}

// Deps инфраструктура, которую используют middleware.
type Deps struct {
	Tokens            middleware.TokenParser
	LimiterStore      limiter.Store
	SubmissionCounter cache.Counter
}

func SetupRouter(cfg *config.Config, h Handlers, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	r.GET("/health", h.Health.Health)
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(deps.LimiterStore, authRequestsPerPeriod, cfg.RateLimitPeriod, middleware.KeyByIP))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
	}

	// Публичные справочники.
	api.GET("/neighborhoods", h.References.Neighborhoods)
	api.GET("/departments", h.References.Departments)
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(deps.Tokens))
	{
		protected.GET("/auth/me", h.Auth.Me)

		incidents := protected.Group("/incidents")
		incidents.POST("",
			middleware.RequireRoles(valueobject.RoleCitizen),
			middleware.RateLimitMiddleware(deps.LimiterStore, cfg.RateLimitLimit, cfg.RateLimitPeriod, middleware.KeyByUser),
			middleware.DailyQuota(deps.SubmissionCounter, cfg.DailySubmissionLimit),
			h.Incidents.Submit)
		incidents.GET("", middleware.RequireRoles(valueobject.RoleMunicipalAgent, valueobject.RoleAdministrator), h.Incidents.Search)
		incidents.GET("/my", h.Incidents.My)
		incidents.GET("/assigned", middleware.RequireRoles(valueobject.RoleMunicipalAgent), h.Incidents.Assigned)
		incidents.GET("/map", h.Incidents.Map)
		incidents.GET("/:id", middleware.UUIDValidator("id"), h.Incidents.Get)
		incidents.GET("/:id/history", middleware.UUIDValidator("id"), h.Incidents.History)
		incidents.PATCH("/:id", middleware.UUIDValidator("id"),
			middleware.RequireRoles(valueobject.RoleMunicipalAgent, valueobject.RoleAdministrator),
			h.Incidents.Update)
		incidents.POST("/:id/close", middleware.UUIDValidator("id"),
			middleware.RequireRoles(valueobject.RoleCitizen, valueobject.RoleAdministrator),
			h.Incidents.Close)
		incidents.POST("/:id/photos", middleware.UUIDValidator("id"), h.Incidents.AddPhotos)

		protected.GET("/statistics",
			middleware.RequireRoles(valueobject.RoleMunicipalAgent, valueobject.RoleAdministrator),
			h.Statistics.General)

		reports := protected.Group("/reports")
		reports.Use(middleware.RequireRoles(valueobject.RoleAdministrator))
		{
			reports.POST("", h.Statistics.GenerateReport)
			reports.GET("", h.Statistics.ListReports)
			reports.GET("/:id/download", middleware.UUIDValidator("id"), h.Statistics.DownloadReport)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", h.Notifications.List)
			notifications.GET("/unread/count", h.Notifications.UnreadCount)
			notifications.PUT("/read-all", h.Notifications.MarkAllAsRead)
			notifications.PUT("/:id/read", middleware.UUIDValidator("id"), h.Notifications.MarkAsRead)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRoles(valueobject.RoleAdministrator))
		{
			admin.POST("/agents", h.Admin.CreateAgent)
			admin.POST("/agents/import", h.Admin.ImportAgents)
			admin.GET("/agents", h.Admin.ListAgents)
		}
	}

	return r
}
