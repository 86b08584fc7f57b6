package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/charge"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/config"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/identity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/lifecycle"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/middleware"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/scheduler"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/metrics"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/ratelimiter"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/storage"

	adminHttp "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/admin/delivery/http"
	adminService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/admin/service"

	applicationHttp "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/application/delivery/http"
	applicationService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/application/service"

	notiHttp "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/notification/delivery/http"
	notifService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/notification/service"

	paymentHttp "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/delivery/http"
	paymentService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/service"

	profileHttp "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/profile/delivery/http"
	profileService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/profile/service"

	searchService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/search/service"

	statHttp "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/stat/delivery/http"
	statService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/stat/service"

	tuitionHttp "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/tuition/delivery/http"
	tuitionService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/tuition/service"

	userHttp "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/delivery/http"
	userService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/service"

	viewService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/view/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the external resources the server is built from. Redis, Search,
// Images and Charges are optional.
type Deps struct {
	Config   *config.Config
	Store    store.Store
	Redis    *redis.Client
	Search   meilisearch.ServiceManager
	Images   storage.ImageStorage
	Charges  charge.Authority
	Verifier identity.Verifier
	Issuer   identity.Issuer
	Alerter  lifecycle.Alerter
	Health   middleware.HealthChecker
	Log      *zap.Logger
}

type Server struct {
	engine   *gin.Engine
	cfg      *config.Config
	views    viewService.ViewService
	tuitions tuitionService.TuitionService
	limiter  *middleware.ClientLimiter
}

type alwaysHealthy struct{}

func (alwaysHealthy) Healthy() bool { return true }

func (alwaysHealthy) MarkDown(error) {}

func NewServer(deps Deps) *Server {
	cfg := deps.Config
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Health == nil {
		deps.Health = alwaysHealthy{}
	}
	if deps.Charges == nil {
		deps.Charges = charge.Disabled()
	}
	st := deps.Store

	// Notification Module
	notificationSvc := notifService.NewNotificationService(st.Notifications(), deps.Redis, log)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, deps.Redis, originChecker(cfg.Origins()), log)

	engine := lifecycle.New(st, log, deps.Alerter, lifecycle.WithNotifier(notificationSvc))
	cooldown := ratelimiter.NewCooldown(deps.Redis, log)

	authSvc := userService.NewAuthService(st.Accounts(), deps.Issuer, userService.GoogleOptions{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, log)
	authHandler := userHttp.NewAuthHandler(authSvc, cfg.IsProduction())

	tutorSvc := userService.NewTutorService(st.Accounts())
	tutorHandler := userHttp.NewTutorHandler(tutorSvc)

	profileSvc := profileService.NewProfileService(st.Accounts(), deps.Images, cfg.CloudinaryUploadFolder, log)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	adminSvc := adminService.NewAdminService(st.Accounts(), notificationSvc, log)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	searchSvc := searchService.NewSearchService(deps.Search, log)
	viewSvc := viewService.NewViewService(deps.Redis, st.Tuitions(), log)

	tuitionSvc := tuitionService.NewTuitionService(st, engine, viewSvc, searchSvc, cooldown, deps.Redis, tuitionService.Options{
		Cooldown: cfg.RateLimitTuition,
		Currency: cfg.Currency,
	}, log)
	tuitionHandler := tuitionHttp.NewTuitionHandler(tuitionSvc)

	applicationSvc := applicationService.NewApplicationService(st, engine, cooldown, cfg.RateLimitApplication)
	applicationHandler := applicationHttp.NewApplicationHandler(applicationSvc)

	paymentSvc := paymentService.NewPaymentService(st, engine, deps.Charges, searchSvc, log)
	paymentHandler := paymentHttp.NewPaymentHandler(paymentSvc)

	statSvc := statService.NewStatService(st)
	statHandler := statHttp.NewStatHandler(statSvc)

	limiter := middleware.NewClientLimiter(cfg.PublicRPS, cfg.PublicBurst)
	authMiddleware := middleware.NewAuthMiddleware(deps.Verifier, st.Accounts(), cfg.VerifyTimeout, log)

	router := gin.New()
	setupCORS(router, cfg.Origins())
	router.Use(gin.Recovery())
	router.Use(middleware.AccessLog(log))
	router.Use(middleware.Instrument())

	router.GET("/healthz", healthz(deps.Health))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	gated := router.Group("", middleware.StoreGate(deps.Health))

	// The websocket outlives any request timeout.
	gated.GET("/notifications/ws", authMiddleware.RequireAuth(), notificationHandler.HandleWebSocket)

	api := gated.Group("", middleware.Timeout(cfg.StoreTimeout))

	// Public routes (no auth required)
	public := api.Group("", limiter.Handler())
	{
		public.POST("/auth/login", authHandler.Login)
		public.GET("/auth/google/login", authHandler.GoogleLogin)
		public.GET("/auth/google/callback", authHandler.GoogleCallback)
		public.POST("/users", authHandler.Register)

		public.GET("/tutors", tutorHandler.GetTutors)
		public.GET("/tutors/:id", tutorHandler.GetTutor)

		public.GET("/tuitions", tuitionHandler.GetTuitions)
		public.GET("/tuitions/search-token", authMiddleware.OptionalAuth(), tuitionHandler.GetSearchToken)
		public.GET("/tuitions/:id", authMiddleware.OptionalAuth(), tuitionHandler.GetTuition)
	}

	// Stripe retries on its own schedule, so the webhook is not rate limited.
	api.POST("/payment/webhook", paymentHandler.Webhook)

	api.POST("/users/google", authMiddleware.RequireIdentity(), authHandler.UpsertFederated)

	// Protected routes
	protected := api.Group("", authMiddleware.RequireAuth())
	{
		self := protected.Group("/users/profile", middleware.RequireSelf("email"))
		{
			self.GET("", profileHandler.GetProfile)
			self.PUT("", profileHandler.UpdateProfile)
			self.DELETE("", profileHandler.DeleteProfile)
		}

		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)

		student := protected.Group("", middleware.RequireRoles(entity.RoleStudent), middleware.RequireSelf("email"))
		{
			student.POST("/tuitions", tuitionHandler.CreateTuition)
			student.PUT("/tuitions/:id", tuitionHandler.UpdateTuition)
			student.DELETE("/tuitions/:id", tuitionHandler.DeleteTuition)
			student.PATCH("/tuitions/:id/complete", tuitionHandler.CompleteTuition)
			student.GET("/tuitions/my", tuitionHandler.GetMyTuitions)
			student.GET("/tuitions/:id/applications", applicationHandler.GetTuitionApplications)
			student.PATCH("/applications/:id/:action", applicationHandler.DecideApplication)
			student.POST("/create-payment-intent", paymentHandler.CreatePaymentIntent)
			student.POST("/payment/success", paymentHandler.PaymentSuccess)
			student.GET("/students/stats", statHandler.GetStudentStats)
		}

		tutor := protected.Group("", middleware.RequireRoles(entity.RoleTutor), middleware.RequireSelf("email"))
		{
			tutor.POST("/applications", applicationHandler.CreateApplication)
			tutor.PUT("/applications/:id", applicationHandler.UpdateApplication)
			tutor.DELETE("/applications/:id", applicationHandler.WithdrawApplication)
			tutor.GET("/applications/my", applicationHandler.GetMyApplications)
			tutor.POST("/tuitions/:id/save", tuitionHandler.SaveTuition)
			tutor.GET("/tutors/stats", statHandler.GetTutorStats)
		}

		protected.GET("/payments/my",
			middleware.RequireRoles(entity.RoleStudent, entity.RoleTutor),
			middleware.RequireSelf("email"),
			paymentHandler.GetMyPayments)

		// Admin routes
		adminGroup := protected.Group("/admin", middleware.RequireRoles(entity.RoleAdmin))
		{
			adminGroup.GET("/users", adminHandler.GetAllUsers)
			adminGroup.PATCH("/users/:id/role", adminHandler.UpdateUserRole)
			adminGroup.PATCH("/users/:id/status", adminHandler.UpdateUserStatus)
			adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)

			adminGroup.GET("/tuitions", tuitionHandler.GetAdminTuitions)
			adminGroup.PATCH("/tuitions/:id/approve", tuitionHandler.ApproveTuition)
			adminGroup.PATCH("/tuitions/:id/reject", tuitionHandler.RejectTuition)

			adminGroup.GET("/payments", paymentHandler.GetAllPayments)
			adminGroup.GET("/reports", statHandler.GetReport)
			adminGroup.GET("/reports/export", statHandler.ExportReport)
		}
	}

	return &Server{
		engine:   router,
		cfg:      cfg,
		views:    viewSvc,
		tuitions: tuitionSvc,
		limiter:  limiter,
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Jobs returns the background work the server depends on. probe may be nil
// when the store is not backed by a database.
func (s *Server) Jobs(probe scheduler.HealthProbe, log *zap.Logger) []scheduler.Job {
	jobs := []scheduler.Job{
		scheduler.ViewSyncJob(s.cfg.ViewSyncSpec, s.views, log),
		scheduler.ReindexJob(s.cfg.ReindexSchedule, s.tuitions, log),
		scheduler.LimiterCleanupJob("@every 5m", s.limiter.Cleanup),
	}
	if probe != nil {
		jobs = append(jobs, scheduler.HealthCheckJob(s.cfg.HealthSchedule, probe))
	}
	return jobs
}

func healthz(h middleware.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.Healthy() {
			c.JSON(http.StatusServiceUnavailable, response.Envelope{
				Success: false,
				Data:    gin.H{"database": "down"},
				Error:   "database unreachable",
				Code:    apperror.CodeServiceUnavailable,
			})
			return
		}
		response.Success(c, gin.H{"database": "up"})
	}
}

// originChecker accepts websocket upgrades from the configured CORS origins.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] {
			return true
		}
		if allowed[strings.TrimRight(origin, "/")] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

func setupCORS(router *gin.Engine, origins []string) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
