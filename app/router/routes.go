// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/handlers"
	"github.com/amirphl/business-registry/app/middleware"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth          handlers.AuthHandlerInterface
	Business      *handlers.BusinessHandler
	Accreditation *handlers.AccreditationHandler
	Review        *handlers.ReviewHandler
	Complaint     *handlers.ComplaintHandler
	Subscription  *handlers.SubscriptionHandler
	Communication *handlers.CommunicationHandler
	Report        *handlers.ReportHandler
	Health        *handlers.HealthHandler
}

// Options carries the server and security settings of the router
type Options struct {
	BodyLimit        int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ProxyHeader      string
	TrustedProxies   []string
	AllowedOrigins   []string
	AllowCredentials bool
	GlobalRateLimit  int
	AuthRateLimit    int
	RateLimitWindow  time.Duration
	IPBlacklist      []string
	MetricsEnabled   bool
	MetricsPath      string
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	handlers Handlers
	auth     *middleware.AuthMiddleware
	options  Options
	logger   *logrus.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(h Handlers, auth *middleware.AuthMiddleware, opts Options, logger *logrus.Logger) *FiberRouter {
	r := &FiberRouter{
		handlers: h,
		auth:     auth,
		options:  opts,
		logger:   logger,
	}

	cfg := fiber.Config{
		AppName:      "Business Registry API",
		ServerHeader: "business-registry",
		ErrorHandler: r.errorHandler,
		BodyLimit:    opts.BodyLimit,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	}
	if opts.ProxyHeader != "" {
		cfg.ProxyHeader = opts.ProxyHeader
		cfg.TrustProxy = true
		cfg.TrustProxyConfig = fiber.TrustProxyConfig{Proxies: opts.TrustedProxies}
	}
	r.app = fiber.New(cfg)

	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.options.MetricsEnabled {
		path := r.options.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.handlers.Health.Check)

	api.Use(r.rateLimiter(r.options.GlobalRateLimit, func(c fiber.Ctx) bool {
		return c.Path() == "/api/v1/health"
	}))

	authn := r.auth.Authenticate()
	optional := r.auth.OptionalAuth()
	can := r.auth.RequirePermission

	// Auth
	auth := api.Group("/auth")
	auth.Use(r.rateLimiter(r.options.AuthRateLimit, nil))
	auth.Get("/captcha", r.handlers.Auth.Captcha)
	auth.Post("/register", r.handlers.Auth.Register)
	auth.Post("/login", r.handlers.Auth.Login)
	auth.Post("/forgot-password", r.handlers.Auth.ForgotPassword)
	auth.Post("/reset-password", r.handlers.Auth.ResetPassword)
	auth.Post("/logout", authn, r.handlers.Auth.Logout)
	auth.Get("/me", authn, r.handlers.Auth.Me)
	auth.Put("/me", authn, r.handlers.Auth.UpdateMe)
	auth.Post("/change-password", authn, r.handlers.Auth.ChangePassword)

	admin := api.Group("/admin", authn)
	admin.Post("/permissions", r.handlers.Auth.GrantPermission)
	admin.Delete("/permissions", r.handlers.Auth.RevokePermission)
	admin.Post("/notifications", can(models.PermissionManageBusinesses), r.handlers.Communication.CreateNotification)

	// Businesses
	biz := api.Group("/businesses")
	biz.Get("/", optional, r.handlers.Business.Search)
	biz.Get("/categories", r.handlers.Business.ListCategories)
	biz.Get("/mine", authn, r.handlers.Business.ListMine)
	biz.Post("/", authn, r.handlers.Business.Create)
	biz.Get("/:id", r.handlers.Business.Get)
	biz.Patch("/:id", authn, r.handlers.Business.Update)
	biz.Put("/:id/status", authn, can(models.PermissionManageBusinesses), r.handlers.Business.UpdateStatus)
	biz.Put("/:id/accreditation-level", authn, can(models.PermissionManageBusinesses), r.handlers.Business.UpdateAccreditationLevel)
	biz.Put("/:id/categories", authn, r.handlers.Business.AssignCategories)

	biz.Get("/:id/locations", r.handlers.Business.ListLocations)
	biz.Post("/:id/locations", authn, r.handlers.Business.AddLocation)
	biz.Put("/:id/locations/:locationId", authn, r.handlers.Business.UpdateLocation)
	biz.Delete("/:id/locations/:locationId", authn, r.handlers.Business.DeleteLocation)

	biz.Get("/:id/documents", authn, r.handlers.Business.ListDocuments)
	biz.Post("/:id/documents", authn, r.handlers.Business.UploadDocument)

	biz.Get("/:id/accreditation", r.handlers.Accreditation.Current)
	biz.Get("/:id/reviews", r.handlers.Review.ListForBusiness)
	biz.Get("/:id/reviews/summary", r.handlers.Review.Summary)

	biz.Get("/:id/subscription", authn, r.handlers.Subscription.Get)
	biz.Put("/:id/subscription", authn, r.handlers.Subscription.Update)
	biz.Delete("/:id/subscription", authn, r.handlers.Subscription.Cancel)

	biz.Post("/:id/subscribers", r.handlers.Subscription.Subscribe)
	biz.Post("/:id/subscribers/unsubscribe", r.handlers.Subscription.Unsubscribe)
	biz.Get("/:id/subscribers", authn, r.handlers.Subscription.ListSubscribers)

	biz.Get("/:id/newsletters/quota", authn, r.handlers.Subscription.Quota)
	biz.Get("/:id/newsletters/templates", authn, r.handlers.Subscription.ListTemplates)
	biz.Post("/:id/newsletters/templates", authn, r.handlers.Subscription.CreateTemplate)
	biz.Put("/:id/newsletters/templates/:templateId", authn, r.handlers.Subscription.UpdateTemplate)
	biz.Delete("/:id/newsletters/templates/:templateId", authn, r.handlers.Subscription.DeleteTemplate)
	biz.Get("/:id/newsletters/campaigns", authn, r.handlers.Subscription.ListCampaigns)
	biz.Post("/:id/newsletters/campaigns", authn, r.handlers.Subscription.CreateCampaign)

	biz.Get("/:id/reports/complaints", authn, r.handlers.Report.ExportComplaints)
	biz.Get("/:id/reports/reviews", authn, r.handlers.Report.ExportReviews)

	api.Put("/documents/:documentId/verify", authn, can(models.PermissionManageBusinesses), r.handlers.Business.VerifyDocument)

	// Newsletters
	newsletters := api.Group("/newsletters")
	newsletters.Get("/unsubscribe", r.handlers.Subscription.UnsubscribeByToken)
	newsletters.Post("/campaigns/:campaignId/schedule", authn, r.handlers.Subscription.ScheduleCampaign)
	newsletters.Post("/campaigns/:campaignId/cancel", authn, r.handlers.Subscription.CancelCampaign)
	newsletters.Post("/campaigns/:campaignId/send", authn, r.handlers.Subscription.SendCampaign)
	api.Get("/subscriptions/tiers/:tier", r.handlers.Subscription.TierFeatures)

	// Accreditations
	acc := api.Group("/accreditations", authn)
	acc.Post("/", r.handlers.Accreditation.Apply)
	acc.Get("/expiring", can(models.PermissionReviewAccreditation), r.handlers.Accreditation.Expiring)
	acc.Get("/:id", r.handlers.Accreditation.History)
	acc.Put("/:id/status", can(models.PermissionReviewAccreditation), r.handlers.Accreditation.UpdateStatus)
	acc.Post("/:id/renew", r.handlers.Accreditation.Renew)

	// Reviews
	reviews := api.Group("/reviews")
	reviews.Post("/", authn, r.handlers.Review.Create)
	reviews.Get("/mine", authn, r.handlers.Review.ListMine)
	reviews.Get("/media/:mediaId", r.handlers.Review.DownloadMedia)
	reviews.Get("/media/:mediaId/preview", r.handlers.Review.PreviewMedia)
	reviews.Get("/:id", r.handlers.Review.Get)
	reviews.Put("/:id", authn, r.handlers.Review.Update)
	reviews.Delete("/:id", authn, r.handlers.Review.Delete)
	reviews.Put("/:id/status", authn, can(models.PermissionModerateReviews), r.handlers.Review.Moderate)
	reviews.Post("/:id/responses", authn, r.handlers.Review.Respond)
	reviews.Post("/:id/votes", authn, r.handlers.Review.Vote)
	reviews.Get("/:id/media", r.handlers.Review.ListMedia)
	reviews.Post("/:id/media", authn, r.handlers.Review.UploadMedia)

	// Complaints
	complaints := api.Group("/complaints", authn)
	complaints.Post("/", r.handlers.Complaint.Create)
	complaints.Get("/", can(models.PermissionManageComplaints), r.handlers.Complaint.List)
	complaints.Get("/mine", r.handlers.Complaint.ListMine)
	complaints.Get("/statistics", can(models.PermissionManageComplaints), r.handlers.Complaint.Statistics)
	complaints.Get("/:id", r.handlers.Complaint.Get)
	complaints.Put("/:id/status", r.handlers.Complaint.UpdateStatus)
	complaints.Post("/:id/escalate", r.handlers.Complaint.Escalate)
	complaints.Put("/:id/priority", r.handlers.Complaint.UpdatePriority)
	complaints.Put("/:id/assign", r.handlers.Complaint.Assign)
	complaints.Get("/:id/messages", r.handlers.Complaint.Thread)
	complaints.Post("/:id/messages", r.handlers.Complaint.AddMessage)
	complaints.Get("/:id/evidence", r.handlers.Complaint.ListEvidence)
	complaints.Post("/:id/evidence", r.handlers.Complaint.UploadEvidence)

	// Messages, notifications and chat
	messages := api.Group("/messages", authn)
	messages.Post("/", r.handlers.Communication.SendMessage)
	messages.Get("/", r.handlers.Communication.ListMessages)
	messages.Get("/:id/thread", r.handlers.Communication.MessageThread)
	messages.Put("/:id/read", r.handlers.Communication.MarkMessageRead)

	notifications := api.Group("/notifications", authn)
	notifications.Get("/", r.handlers.Communication.ListNotifications)
	notifications.Get("/unread-count", r.handlers.Communication.UnreadCount)
	notifications.Put("/read-all", r.handlers.Communication.MarkAllNotificationsRead)
	notifications.Put("/:id/read", r.handlers.Communication.MarkNotificationRead)

	chats := api.Group("/chats", authn)
	chats.Post("/", r.handlers.Communication.StartChat)
	chats.Get("/:id/messages", r.handlers.Communication.ChatTranscript)
	chats.Post("/:id/messages", r.handlers.Communication.PostChatMessage)
	chats.Post("/:id/close", r.handlers.Communication.CloseChat)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    businessflow.RequestIDKey,
		Generator: generateRequestID,
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.WithFields(logrus.Fields{
				"request_id": handlers.RequestID(c),
				"event":      "panic",
				"path":       c.Path(),
				"method":     c.Method(),
				"ip":         c.IP(),
			}).Errorf("panic: %v", e)
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'self'; img-src 'self' data: https:; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.options.AllowedOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			businessflow.RequestIDKey,
		},
		ExposeHeaders: []string{
			businessflow.RequestIDKey,
			"Content-Disposition",
		},
		AllowCredentials: r.options.AllowCredentials,
		MaxAge:           utils.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			contentType := string(c.Response().Header.ContentType())
			return strings.HasPrefix(contentType, "image/") ||
				strings.HasPrefix(contentType, "video/")
		},
	}))

	r.app.Use(middleware.Metrics())
	r.app.Use(middleware.RequestLogger(r.logger, "/api/v1/health"))
	r.app.Use(r.securityMiddleware)
}

func (r *FiberRouter) rateLimiter(max int, next func(fiber.Ctx) bool) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: r.options.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: next,
	})
}

func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	if slices.Contains(r.options.IPBlacklist, c.IP()) {
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
			Success: false,
			Message: "Access denied from this IP address",
			Error: dto.ErrorDetail{
				Code: "ACCESS_DENIED",
			},
		})
	}
	return c.Next()
}

func (r *FiberRouter) Start(address string) error {
	r.logger.WithField("address", address).Info("Starting server")
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": handlers.RequestID(c),
			},
		},
	})
}

func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errorCode := "INTERNAL_ERROR"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errorCode = "REQUEST_ERROR"
		}
	}

	requestID := handlers.RequestID(c)
	r.logger.WithError(err).WithFields(logrus.Fields{
		"status":     code,
		"request_id": requestID,
		"path":       c.Path(),
	}).Error("Unhandled request error")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
