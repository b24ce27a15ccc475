package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	database "github.com/duely/duely/db"
	"github.com/duely/duely/internal/admin"
	"github.com/duely/duely/internal/auth"
	"github.com/duely/duely/internal/config"
	emailService "github.com/duely/duely/internal/email"
	"github.com/duely/duely/internal/logger"
	"github.com/duely/duely/internal/notifier"
	"github.com/duely/duely/internal/push"
	"github.com/duely/duely/internal/subscription/application"
	"github.com/duely/duely/internal/subscription/infrastructure"
	"github.com/duely/duely/internal/subscription/interfaces"
	"github.com/duely/duely/internal/user"
)

type Response struct {
	Message string `json:"message"`
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Log.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request completed")
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, errs ...[]string) {
	payload := map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	}
	if len(errs) > 0 && len(errs[0]) > 0 {
		payload["errors"] = errs[0]
	}
	respondJSON(w, status, payload)
}

type Server struct {
	router              *http.ServeMux
	authHandler         *auth.Handler
	authService         auth.Service
	userHandler         *user.Handler
	subscriptionHandler *interfaces.SubscriptionHandler
	categoryHandler     *interfaces.CategoryHandler
	notificationHandler *interfaces.NotificationHandler
	dashboardHandler    *interfaces.DashboardHandler
	pushHandler         *push.Handler
	adminHandler        *admin.Handler
}

func NewServer(
	authHandler *auth.Handler,
	authService auth.Service,
	userHandler *user.Handler,
	subscriptionHandler *interfaces.SubscriptionHandler,
	categoryHandler *interfaces.CategoryHandler,
	notificationHandler *interfaces.NotificationHandler,
	dashboardHandler *interfaces.DashboardHandler,
	pushHandler *push.Handler,
	adminHandler *admin.Handler,
) *Server {
	return &Server{
		router:              http.NewServeMux(),
		authHandler:         authHandler,
		authService:         authService,
		userHandler:         userHandler,
		subscriptionHandler: subscriptionHandler,
		categoryHandler:     categoryHandler,
		notificationHandler: notificationHandler,
		dashboardHandler:    dashboardHandler,
		pushHandler:         pushHandler,
		adminHandler:        adminHandler,
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ready",
	})
}

func (s *Server) RegisterRoutes() {
	withAccess := s.authService.JWTAccessTokenMiddleware()
	withAdmin := s.authService.AdminOnlyMiddleware()

	// Public routes
	publicRoutes := http.NewServeMux()
	publicRoutes.Handle("POST /api/register", http.HandlerFunc(s.userHandler.HandleRegister))
	publicRoutes.Handle("POST /api/email/verify", http.HandlerFunc(s.userHandler.HandleVerifyEmail))
	publicRoutes.Handle("POST /api/auth/login", http.HandlerFunc(s.authHandler.HandleLogin))
	publicRoutes.Handle("POST /api/auth/logout", http.HandlerFunc(s.authHandler.HandleLogout))
	publicRoutes.Handle("POST /api/auth/2fa/verify", http.HandlerFunc(s.authHandler.HandleVerifyTwoFactor))
	publicRoutes.Handle("POST /api/password-reset/request", http.HandlerFunc(s.authHandler.RequestPasswordResetHandler))
	publicRoutes.Handle("POST /api/password-reset/confirm", http.HandlerFunc(s.authHandler.ResetPasswordHandler))
	publicRoutes.Handle("GET /api/push/public-key", http.HandlerFunc(s.pushHandler.HandleGetPublicKey))
	publicRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))

	// Protected routes (using JWT Access Token Middleware)
	protectedRoutes := http.NewServeMux()
	protectedRoutes.Handle("POST /api/protected/email/change-request", withAccess(http.HandlerFunc(s.userHandler.HandleRequestEmailChange)))
	protectedRoutes.Handle("POST /api/protected/email/change-confirm", withAccess(http.HandlerFunc(s.userHandler.HandleConfirmEmailChange)))

	protectedRoutes.Handle("GET /api/protected/profile", withAccess(http.HandlerFunc(s.userHandler.HandleGetUserProfile)))
	protectedRoutes.Handle("GET /api/protected/settings", withAccess(http.HandlerFunc(s.userHandler.HandleGetSettings)))
	protectedRoutes.Handle("PUT /api/protected/settings", withAccess(http.HandlerFunc(s.userHandler.HandleUpdateSettings)))

	protectedRoutes.Handle("POST /api/protected/2fa/register", withAccess(http.HandlerFunc(s.authHandler.HandleRegisterTwoFactor)))
	protectedRoutes.Handle("POST /api/protected/2fa/verify-registration", withAccess(http.HandlerFunc(s.authHandler.HandleVerifyTwoFactorCode)))
	protectedRoutes.Handle("POST /api/protected/2fa/request-email-code", withAccess(http.HandlerFunc(s.authHandler.HandleRequestEmail2FACode)))
	protectedRoutes.Handle("DELETE /api/protected/2fa/disable", withAccess(http.HandlerFunc(s.authHandler.HandleDisableTwoFactor)))
	protectedRoutes.Handle("POST /api/protected/change-password", withAccess(http.HandlerFunc(s.userHandler.HandleChangePassword)))

	// SUBSCRIPTIONS API
	protectedRoutes.Handle("POST /api/protected/subscriptions", withAccess(http.HandlerFunc(s.subscriptionHandler.CreateSubscription)))
	protectedRoutes.Handle("GET /api/protected/subscriptions", withAccess(http.HandlerFunc(s.subscriptionHandler.GetUserSubscriptions)))
	protectedRoutes.Handle("GET /api/protected/subscriptions/{id}", withAccess(http.HandlerFunc(s.subscriptionHandler.GetSubscription)))
	protectedRoutes.Handle("PUT /api/protected/subscriptions/{id}", withAccess(http.HandlerFunc(s.subscriptionHandler.UpdateSubscription)))
	protectedRoutes.Handle("DELETE /api/protected/subscriptions/{id}", withAccess(http.HandlerFunc(s.subscriptionHandler.DeleteSubscription)))
	protectedRoutes.Handle("POST /api/protected/subscriptions/{id}/renew", withAccess(http.HandlerFunc(s.subscriptionHandler.RenewSubscription)))

	// CATEGORIES API
	protectedRoutes.Handle("POST /api/protected/categories", withAccess(http.HandlerFunc(s.categoryHandler.CreateCategory)))
	protectedRoutes.Handle("GET /api/protected/categories", withAccess(http.HandlerFunc(s.categoryHandler.GetUserCategories)))
	protectedRoutes.Handle("PUT /api/protected/categories/{id}", withAccess(http.HandlerFunc(s.categoryHandler.UpdateCategory)))
	protectedRoutes.Handle("DELETE /api/protected/categories/{id}", withAccess(http.HandlerFunc(s.categoryHandler.DeleteCategory)))

	// NOTIFICATIONS API
	protectedRoutes.Handle("GET /api/protected/notifications", withAccess(http.HandlerFunc(s.notificationHandler.GetUserNotifications)))
	protectedRoutes.Handle("PUT /api/protected/notifications/{id}/read", withAccess(http.HandlerFunc(s.notificationHandler.MarkRead)))
	protectedRoutes.Handle("PUT /api/protected/notifications/read-all", withAccess(http.HandlerFunc(s.notificationHandler.MarkAllRead)))

	// DASHBOARD API
	protectedRoutes.Handle("GET /api/protected/dashboard/summary", withAccess(http.HandlerFunc(s.dashboardHandler.GetDashboardSummary)))

	// PUSH API
	protectedRoutes.Handle("POST /api/protected/push/subscribe", withAccess(http.HandlerFunc(s.pushHandler.HandleSubscribe)))
	protectedRoutes.Handle("DELETE /api/protected/push/subscribe", withAccess(http.HandlerFunc(s.pushHandler.HandleUnsubscribe)))

	// ADMIN API
	protectedRoutes.Handle("GET /api/protected/admin/users", withAccess(withAdmin(http.HandlerFunc(s.adminHandler.HandleListUsers))))
	protectedRoutes.Handle("PUT /api/protected/admin/users/{id}/active", withAccess(withAdmin(http.HandlerFunc(s.adminHandler.HandleSetUserActive))))
	protectedRoutes.Handle("GET /api/protected/admin/health", withAccess(withAdmin(http.HandlerFunc(s.adminHandler.HandleSystemHealth))))
	protectedRoutes.Handle("POST /api/protected/admin/notifications/generate", withAccess(withAdmin(http.HandlerFunc(s.adminHandler.HandleTriggerNotificationRun))))

	// Refresh token routes
	refreshTokenRoutes := http.NewServeMux()
	refreshTokenRoutes.Handle("PUT /api/refresh/token", s.authService.JWTRefreshTokenMiddleware()(http.HandlerFunc(s.authHandler.RefreshAccessToken)))

	// Main router
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", publicRoutes)
	mainRouter.Handle("/api/protected/", protectedRoutes)
	mainRouter.Handle("/api/refresh/", refreshTokenRoutes)
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}

// startOpsServer serves metrics and the health probe on a separate listener so
// they never mix with the public API surface.
func startOpsServer(addr string, dbService *database.DBService) {
	opsMux := http.NewServeMux()
	opsMux.Handle("GET /metrics", promhttp.Handler())
	opsMux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(dbService.Health())
	})

	go func() {
		logger.Log.Infof("Ops server starting on %s", addr)
		if err := http.ListenAndServe(addr, opsMux); err != nil {
			logger.Log.Errorf("Ops server failed: %v", err)
		}
	}()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Missing configuration, update to start server: %v", err)
	}
	logger.Init(cfg)

	dbService, err := database.NewDBService(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("Could not initialize database: %v", err)
	}
	defer dbService.Close()

	if err := dbService.Migrate("db/migrations"); err != nil {
		logger.Log.Fatalf("Could not apply migrations: %v", err)
	}

	newEmailService := emailService.NewEmailService(
		cfg.EmailAddress, cfg.EmailPassword, cfg.SMTPHost, cfg.SMTPPort, cfg.TemplatesDir, logger.Log,
	)

	authRepo := auth.NewUserRepository(dbService.DB)
	userRepo := user.NewUserRepository(dbService.DB)

	sessionManager := auth.NewSessionManager()
	jwtManager := auth.NewJWTManager(cfg.JWTSecret)
	authenticator := auth.Authenticator{}

	userService := user.NewUserService(userRepo, newEmailService, cfg.DefaultLeadDays)
	userHandler := user.NewHandler(userService)
	authService := auth.NewAuthService(authRepo, userService, sessionManager, jwtManager, newEmailService, authenticator)
	authHandler := auth.NewHandler(authService)

	subscriptionRepo := infrastructure.NewSubscriptionRepository(dbService.DB)
	categoryRepo := infrastructure.NewCategoryRepository(dbService.DB)
	notificationRepo := infrastructure.NewNotificationRepository(dbService.DB)

	categoryService := application.NewCategoryService(categoryRepo)
	subscriptionService := application.NewSubscriptionService(subscriptionRepo, categoryService)
	notificationService := application.NewNotificationService(notificationRepo)

	subscriptionHandler := interfaces.NewSubscriptionHandler(subscriptionService, respondJSON, respondError)
	categoryHandler := interfaces.NewCategoryHandler(categoryService, respondJSON, respondError)
	notificationHandler := interfaces.NewNotificationHandler(notificationService, respondJSON, respondError)
	dashboardHandler := interfaces.NewDashboardHandler(subscriptionService, userService, respondJSON, respondError)

	pushRepo := push.NewPushRepository(dbService.DB)
	pushService := push.NewPushService(pushRepo, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject, logger.Log)
	pushHandler := push.NewPushHandler(pushService, respondJSON, respondError)

	scanner := notifier.NewScanner(subscriptionRepo, categoryRepo, userService)
	guard := notifier.NewGuard(notificationRepo)
	writer := notifier.NewWriter(notificationRepo, pushService, newEmailService, logger.Log)
	engine := notifier.NewEngine(scanner, guard, writer, dbService.DB, logger.Log)

	scheduler := notifier.NewScheduler(engine, logger.Log)
	if err := scheduler.Start(cfg.CronSpecDailyRun); err != nil {
		logger.Log.Fatalf("Notification scheduler didn't start: %v", err)
	}
	defer scheduler.Stop()

	adminRepo := admin.NewAdminRepository(dbService.DB)
	adminService := admin.NewAdminService(adminRepo, engine, dbService, logger.Log)
	adminHandler := admin.NewAdminHandler(adminService, respondJSON, respondError)

	sessionManager.StartSessionTokenCleanup(time.Minute)

	server := NewServer(
		authHandler, authService, userHandler,
		subscriptionHandler, categoryHandler, notificationHandler, dashboardHandler,
		pushHandler, adminHandler,
	)
	server.RegisterRoutes()

	startOpsServer(cfg.OpsAddr, dbService)

	logger.Log.Infof("Server starting on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, loggingMiddleware(server.router)); err != nil {
		logger.Log.Fatalf("Server failed to start: %v", err)
	}
}
