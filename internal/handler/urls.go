package handlers

import (
	"MediRoute/internal/dispatch"
	"MediRoute/internal/models"
	"MediRoute/pkg/auth"
	"MediRoute/pkg/cache"
	"MediRoute/pkg/config"
	"MediRoute/pkg/metrics"
	"MediRoute/pkg/middleware"
	"MediRoute/pkg/search"
	"MediRoute/pkg/sse"
	"MediRoute/pkg/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Options carries the components the routes are served by.
type Options struct {
	Config      *config.Config
	Dispatch    *dispatch.Service
	Hub         *sse.Hub
	Sockets     *websocket.Hub
	Metrics     *metrics.Metrics
	Tokens      *auth.TokenIssuer
	RateLimiter *middleware.RateLimiter
	Idempotency cache.Cache
	Directory   *search.Directory
}

type Handlers struct {
	db      *gorm.DB
	cfg     *config.Config
	svc     *dispatch.Service
	hub     *sse.Hub
	sockets *websocket.Hub
	metrics *metrics.Metrics
	tokens  *auth.TokenIssuer
	limiter *middleware.RateLimiter
	idem    cache.Cache
	dir     *search.Directory
}

func NewHandlers(db *gorm.DB, opts Options) *Handlers {
	return &Handlers{
		db:      db,
		cfg:     opts.Config,
		svc:     opts.Dispatch,
		hub:     opts.Hub,
		sockets: opts.Sockets,
		metrics: opts.Metrics,
		tokens:  opts.Tokens,
		limiter: opts.RateLimiter,
		idem:    opts.Idempotency,
		dir:     opts.Directory,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	if h.metrics != nil {
		engine.Use(metrics.MonitorMiddleware(h.metrics))
		if h.cfg.MetricsPath != "" {
			engine.GET(h.cfg.MetricsPath, gin.WrapH(h.metrics.Handler()))
		}
	}

	r := engine.Group(h.cfg.APIPrefix)
	r.Use(middleware.InjectDB(h.db))
	r.Use(middleware.InjectValue(middleware.TokenIssuerField, h.tokens))

	h.registerSystemRoutes(r)
	h.registerAuthRoutes(r)
	h.registerDispatchRoutes(r)
	h.registerHospitalRoutes(r)
	h.registerPatientRoutes(r)
	h.registerSearchRoutes(r)

	if h.cfg.AdminPrefix != "" {
		h.registerAdminRoutes(r.Group(h.cfg.AdminPrefix))
	}
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.HealthCheck)
	}
}

// Account Module
func (h *Handlers) registerAuthRoutes(r *gin.RouterGroup) {
	authGroup := r.Group(h.cfg.AuthPrefix)
	{
		authGroup.POST("/register", h.handleRegister)

		authGroup.POST("/login", h.handleLogin)

		authGroup.POST("/logout", models.AuthRequired, h.handleLogout)

		authGroup.GET("/info", models.AuthRequired, h.handleAccountInfo)
	}
}

// Dispatch endpoints are open: a caller in distress may not be logged in.
func (h *Handlers) registerDispatchRoutes(r *gin.RouterGroup) {
	group := r.Group("dispatch")
	if h.limiter != nil {
		group.Use(h.limiter.Middleware())
	}
	group.Use(middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{Store: h.idem}))
	{
		group.POST("/sos", h.handleEmergencyDispatch)

		group.POST("/doctor-connect", h.handleDoctorConnect)
	}
}

func (h *Handlers) registerHospitalRoutes(r *gin.RouterGroup) {
	// pending hospitals may set their location before approval
	r.PUT("/hospital/location", models.AuthRequired, h.handleUpdateLocation)

	group := r.Group("hospital")
	group.Use(models.HospitalRequired)
	{
		group.GET("/queue", h.handleListQueue)

		group.GET("/queue/stream", h.handleQueueStream)

		group.GET("/queue/ws", h.handleQueueSocket)

		group.POST("/queue/:id/resolve", h.handleResolveRequest)

		group.GET("/prescriptions", h.handleHospitalPrescriptions)

		group.GET("/prescriptions/export", h.handleExportPrescriptions)

		group.GET("/staff", h.handleListStaff)

		group.POST("/staff", h.handleCreateStaff)

		group.DELETE("/staff/:id", h.handleDeleteStaff)

		group.GET("/patients", h.handleListPatients)

		group.POST("/patients", h.handleAdmitPatient)

		group.POST("/patients/:id/discharge", h.handleDischargePatient)

		group.POST("/patients/:id/prescribe", h.handlePrescribePatient)
	}
}

func (h *Handlers) registerPatientRoutes(r *gin.RouterGroup) {
	group := r.Group("patient")
	group.Use(models.AuthRequired)
	{
		group.GET("/prescriptions", h.handlePatientPrescriptions)
	}
}

func (h *Handlers) registerSearchRoutes(r *gin.RouterGroup) {
	if h.dir == nil {
		return
	}
	r.GET("/hospitals/search", h.handleSearchHospitals)
}

func (h *Handlers) registerAdminRoutes(r *gin.RouterGroup) {
	r.Use(models.AdminRequired)
	{
		r.GET("/hospitals/pending", h.handlePendingHospitals)

		r.POST("/hospitals/:id/approve", h.handleApproveHospital)

		r.POST("/rate-limiter/config", h.UpdateRateLimiterConfig)
	}
}
