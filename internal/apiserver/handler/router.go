package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/syncwave/crm/internal/apiserver/cache"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/apiserver/middleware"
	"github.com/syncwave/crm/internal/apiserver/scheduler"
	"github.com/syncwave/crm/internal/auth/jwt"
	"github.com/syncwave/crm/internal/campaign"
	"github.com/syncwave/crm/internal/crm"
	"github.com/syncwave/crm/internal/dispatch"
	"github.com/syncwave/crm/internal/i18n"
	"github.com/syncwave/crm/internal/tenancy"
	"github.com/syncwave/crm/pkg/metrics"
	"github.com/syncwave/crm/pkg/version"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Deps are the services served by the router
type Deps struct {
	DB        database.Database
	JWT       *jwt.Service
	Tenancy   *tenancy.Service
	CRM       *crm.Service
	Campaigns *campaign.Service
	Dispatch  *dispatch.Orchestrator
	// Principals caches token principals when set
	Principals *cache.PrincipalCache
	// Scheduler is reported by /health when set
	Scheduler *scheduler.DueScheduler
	// Metrics enables the HTTP metrics middleware and MetricsPath when set
	Metrics     *metrics.Metrics
	MetricsPath string
	ServiceName string
	Logger      *zap.Logger
}

// NewRouter builds the HTTP API
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if d.ServiceName != "" {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middleware.RequestLogger(d.Logger), i18n.Middleware())
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok", "version": version.Get()}
		if d.Scheduler != nil {
			body["scheduler"] = d.Scheduler.GetStatus()
		}
		if d.Principals != nil {
			body["principalCache"] = d.Principals.GetStats()
		}
		c.JSON(http.StatusOK, body)
	})

	authH := NewAuth(d.DB, d.Tenancy, d.JWT, d.Logger)
	var (
		loader     middleware.PrincipalLoader = d.Tenancy
		principals principalInvalidator
	)
	if d.Principals != nil {
		loader, principals = d.Principals, d.Principals
	}
	tenancyH := NewTenancy(d.Tenancy, principals)
	crmH := NewCRM(d.CRM)
	campaignH := NewCampaigns(d.Campaigns, d.Dispatch)

	api := r.Group("/api")
	api.POST("/auth/login", authH.Login)

	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware(d.JWT, loader))
	{
		protected.GET("/auth/me", authH.Me)
		protected.PUT("/auth/password", authH.ChangePassword)

		protected.GET("/companies", tenancyH.ListCompanies)
		protected.POST("/companies", tenancyH.CreateCompany)
		protected.GET("/companies/accessible", tenancyH.AccessibleCompanies)
		protected.GET("/companies/:id", tenancyH.GetCompany)
		protected.PUT("/companies/:id", tenancyH.UpdateCompany)
		protected.DELETE("/companies/:id", tenancyH.DeleteCompany)

		protected.GET("/users", tenancyH.ListUsers)
		protected.POST("/users", tenancyH.CreateUser)
		protected.PUT("/users/:id", tenancyH.UpdateUser)
		protected.DELETE("/users/:id", tenancyH.DeleteUser)

		protected.GET("/grants", tenancyH.ListGrants)
		protected.POST("/grants", tenancyH.CreateGrant)
		protected.PUT("/grants/:id", tenancyH.UpdateGrant)
		protected.DELETE("/grants/:id", tenancyH.DeleteGrant)

		protected.GET("/tags", crmH.ListTags)
		protected.POST("/tags", crmH.CreateTag)
		protected.PUT("/tags/:id", crmH.UpdateTag)
		protected.DELETE("/tags/:id", crmH.DeleteTag)

		protected.GET("/contacts", crmH.ListContacts)
		protected.POST("/contacts", crmH.CreateContact)
		protected.POST("/contacts/import", crmH.ImportContacts)
		protected.GET("/contacts/export", crmH.ExportContacts)
		protected.GET("/contacts/:id", crmH.GetContact)
		protected.PUT("/contacts/:id", crmH.UpdateContact)
		protected.DELETE("/contacts/:id", crmH.DeleteContact)
		protected.POST("/contacts/:id/tags", crmH.AddContactTag)
		protected.DELETE("/contacts/:id/tags/:tagId", crmH.RemoveContactTag)

		protected.GET("/campaigns", campaignH.ListCampaigns)
		protected.POST("/campaigns", campaignH.CreateCampaign)
		protected.GET("/campaigns/:id", campaignH.GetCampaign)
		protected.PUT("/campaigns/:id", campaignH.UpdateCampaign)
		protected.DELETE("/campaigns/:id", campaignH.DeleteCampaign)
		protected.GET("/campaigns/:id/preview", campaignH.PreviewCampaign)

		protected.GET("/messages", campaignH.ListMessages)
		protected.POST("/messages", campaignH.CreateMessage)
		protected.GET("/messages/:id", campaignH.GetMessage)
		protected.PUT("/messages/:id", campaignH.UpdateMessage)
		protected.DELETE("/messages/:id", campaignH.DeleteMessage)
		protected.POST("/messages/:id/send", campaignH.SendMessage)
		protected.POST("/messages/:id/cancel", campaignH.CancelMessage)
		protected.POST("/messages/:id/stop", campaignH.StopMessage)
		protected.POST("/messages/:id/retry", campaignH.RetryMessage)
		protected.GET("/messages/:id/logs", campaignH.MessageLogs)
		protected.GET("/messages/:id/preview", campaignH.PreviewMessage)

		protected.GET("/stats", campaignH.Stats)
	}

	return r
}
