package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/CANDRY15/flashprint/config"
	"github.com/CANDRY15/flashprint/database"
	"github.com/CANDRY15/flashprint/handlers"
	admin_handlers "github.com/CANDRY15/flashprint/handlers/admin"
	auth_handlers "github.com/CANDRY15/flashprint/handlers/auth"
	content_handlers "github.com/CANDRY15/flashprint/handlers/content"
	document_handlers "github.com/CANDRY15/flashprint/handlers/document"
	fileproxy_handlers "github.com/CANDRY15/flashprint/handlers/fileproxy"
	library_handlers "github.com/CANDRY15/flashprint/handlers/library"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/services/background"
	"github.com/CANDRY15/flashprint/services/interstitial"
	"github.com/CANDRY15/flashprint/utils"
	"github.com/CANDRY15/flashprint/utils/auth"
	"github.com/CANDRY15/flashprint/utils/cache"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/middleware"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps is the infrastructure the routes are built on. Cache and Files may
// be nil: role checks then always hit the database, brute-force protection
// is off, and uploads fail with ErrStorageUnavailable.
type Deps struct {
	Env        *config.EnvironmentVariable
	Log        *logger.Logger
	Cache      *cache.RedisCache
	Files      services.FileStore
	Runner     background.Runner
	GateStore  interstitial.Store
	Clock      interstitial.Clock
	HTTPClient *http.Client
	Mailer     auth_handlers.ConfirmationMailer
}

// Services are the domain services shared by the routes and the scheduler
type Services struct {
	Roles     *services.RoleService
	Audit     *services.AuditService
	Faculties *services.FacultyService
	Syllabus  *services.SyllabusService
	Analytics *services.AnalyticsService
	Library   *services.LibraryService
	Viewer    *services.ViewerService
	Proxy     *services.FileProxyService
	Content   *services.ContentService
	Links     *services.LinkBuilder
	Gate      *interstitial.Gate
}

// NewServices wires the domain services over db
func NewServices(db *gorm.DB, deps Deps) *Services {
	env := deps.Env

	var roleCache services.RoleCache
	if deps.Cache != nil {
		roleCache = deps.Cache
	}

	links := services.NewLinkBuilder(env.PUBLIC_BASE_URL, env.FILE_PROXY_BASE, env.WHATSAPP_NUMBER)
	audit := services.NewAuditService(db, deps.Runner)
	faculties := services.NewFacultyService(db)
	analytics := services.NewAnalyticsService(db, deps.Runner, deps.Log)

	syllabus := services.NewSyllabusService(db, services.SyllabusDeps{
		Files:           deps.Files,
		Slugs:           services.NewSlugService(db),
		Audit:           audit,
		Links:           links,
		Runner:          deps.Runner,
		Log:             deps.Log,
		ManagementMaxMB: env.MAX_UPLOAD_MB_MANAGEMENT,
		GeneratorMaxMB:  env.MAX_UPLOAD_MB_GENERATOR,
	})

	gate := interstitial.NewGate(deps.GateStore, interstitial.Config{
		Countdown:    time.Duration(env.INTERSTITIAL_COUNTDOWN_SECONDS) * time.Second,
		InitialDelay: time.Duration(env.INTERSTITIAL_INITIAL_DELAY_SECONDS) * time.Second,
	}, deps.Clock)

	return &Services{
		Roles:     services.NewRoleService(db, roleCache, deps.Log),
		Audit:     audit,
		Faculties: faculties,
		Syllabus:  syllabus,
		Analytics: analytics,
		Library:   services.NewLibraryService(db, faculties),
		Viewer:    services.NewViewerService(syllabus, analytics, links),
		Proxy:     services.NewFileProxyService(syllabus, deps.HTTPClient, 30*time.Second),
		Content:   services.NewContentService(db),
		Links:     links,
		Gate:      gate,
	}
}

// ProxyPaths are the mount points of the file proxy
func ProxyPaths(env *config.EnvironmentVariable) []string {
	return []string{env.FILE_PROXY_BASE, "/files"}
}

func SetupRoutes(app *fiber.App, store database.Storage, svc *Services, deps Deps) error {
	env := deps.Env
	if env.JWT_SECRET == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        time.Duration(env.JWT_EXPIRY_HOURS) * time.Hour,
		RefreshExpiry: time.Duration(env.REFRESH_TOKEN_EXPIRY_HOURS) * time.Hour,
		Issuer:        env.JWT_ISSUER,
	})

	db := store.GetDB()

	var bruteForceProtection *middleware.BruteForceProtection
	if deps.Cache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(deps.Cache, deps.Log)
	} else {
		deps.Log.Warn("Redis unavailable, brute force protection disabled")
	}

	mailer := deps.Mailer
	if mailer == nil {
		mailer = services.NewEmailService(services.EmailConfig{
			Host:     env.SMTP_HOST,
			Port:     env.SMTP_PORT,
			Username: env.SMTP_USERNAME,
			Password: env.SMTP_PASSWORD,
			From:     env.SMTP_FROM,
		}, deps.Log)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)
	requireAdmin := middleware.RequireAdmin(svc.Roles, deps.Log)

	authHandler := auth_handlers.NewAuthHandler(db, auth_handlers.Deps{
		JWT:        jwtManager,
		BruteForce: bruteForceProtection,
		Roles:      svc.Roles,
		Mailer:     mailer,
		Runner:     deps.Runner,
		Log:        deps.Log,
	}, auth_handlers.Config{
		RequireEmailConfirmation: env.REQUIRE_EMAIL_CONFIRMATION,
		SiteOrigin:               env.PUBLIC_BASE_URL,
		RedirectOrigins:          middleware.SplitOrigins(env.ALLOWED_ORIGINS),
	})

	libraryHandler := library_handlers.NewLibraryHandler(svc.Library, svc.Faculties, deps.Log)
	contentHandler := content_handlers.NewContentHandler(svc.Content, deps.Log)
	proxyHandler := fileproxy_handlers.NewHandler(svc.Proxy, deps.Log)
	documentHandler := document_handlers.NewDocumentHandler(document_handlers.Deps{
		Docs:      svc.Syllabus,
		Viewer:    svc.Viewer,
		Proxy:     svc.Proxy,
		Analytics: svc.Analytics,
		Links:     svc.Links,
		Gate:      svc.Gate,
		Log:       deps.Log,
	})
	adminHandler := admin_handlers.NewAdminHandler(admin_handlers.Deps{
		Faculties: svc.Faculties,
		Syllabus:  svc.Syllabus,
		Analytics: svc.Analytics,
		Content:   svc.Content,
		Audit:     svc.Audit,
		Links:     svc.Links,
		Log:       deps.Log,
	})

	proxyPaths := ProxyPaths(env)
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    env.ALLOWED_ORIGINS,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
		OpenPaths:         proxyPaths,
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	// File proxy (public, permissive CORS)
	for _, base := range proxyPaths {
		app.Options(base, proxyHandler.Preflight)
		app.Options(base+"/:slugOrId", proxyHandler.Preflight)
		app.Get(base, proxyHandler.Serve)
		app.Get(base+"/:slugOrId", proxyHandler.Serve)
	}

	api := app.Group("/api/v1")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/signup", authHandler.SignUp)
	authGroup.Get("/confirm", authHandler.Confirm)
	if bruteForceProtection != nil {
		authGroup.Post("/signin", bruteForceProtection.CheckAndRecordAttempt(), authHandler.SignIn)
	} else {
		authGroup.Post("/signin", authHandler.SignIn)
	}
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/signout", authMiddleware.Required(), authHandler.SignOut)
	authGroup.Get("/session", authMiddleware.Required(), authHandler.Session)
	authGroup.Get("/has-role", authMiddleware.Required(), authHandler.HasRole)

	// Library browser (public)
	api.Get("/library", libraryHandler.Browse)
	api.Get("/library/seed", libraryHandler.Seed)
	api.Get("/faculties", libraryHandler.Faculties)
	api.Get("/faculties/:slugOrId", libraryHandler.Faculty)
	api.Get("/content", contentHandler.Public)

	// Document viewer (public)
	documents := api.Group("/documents")
	documents.Get("/:slugOrId", documentHandler.View)
	documents.Get("/:slugOrId/download", documentHandler.Download)
	documents.Get("/:slugOrId/order-link", documentHandler.OrderLink)
	documents.Post("/:slugOrId/intents", documentHandler.CreateIntent)

	interstitials := api.Group("/interstitials")
	interstitials.Get("/config", documentHandler.InterstitialConfig)
	interstitials.Get("/:ticket", documentHandler.InterstitialState)
	interstitials.Get("/:ticket/stream", documentHandler.StreamInterstitial)
	interstitials.Post("/:ticket/dismiss", documentHandler.Dismiss)

	// Admin routes: JWT plus has_role(user, 'admin')
	admin := api.Group("/admin", authMiddleware.Required(), requireAdmin)

	admin.Get("/dashboard", adminHandler.GetDashboard)
	admin.Get("/analytics", adminHandler.GetAnalytics)
	admin.Get("/audit-logs", adminHandler.ListAuditLogs)

	admin.Get("/faculties", adminHandler.ListFaculties)
	admin.Post("/faculties", adminHandler.CreateFaculty)
	admin.Put("/faculties/:id", adminHandler.UpdateFaculty)
	admin.Delete("/faculties/:id", adminHandler.DeleteFaculty)

	admin.Get("/syllabus", adminHandler.ListSyllabus)
	admin.Post("/syllabus", adminHandler.CreateSyllabus)
	admin.Post("/syllabus/qr-generator", adminHandler.GenerateQR)
	admin.Post("/syllabus/repair", adminHandler.RepairSyllabus)
	admin.Put("/syllabus/:id", adminHandler.UpdateSyllabus)
	admin.Delete("/syllabus/:id", adminHandler.DeleteSyllabus)
	admin.Get("/syllabus/:id/qr.png", adminHandler.QRCodePNG)
	admin.Get("/syllabus/:id/share", adminHandler.ShareSyllabus)

	admin.Get("/content", adminHandler.ListContent)
	admin.Post("/content", adminHandler.UpsertContent)
	admin.Put("/content/:id", adminHandler.UpdateContent)

	return nil
}
