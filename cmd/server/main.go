package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"audioeq-backend-go/internal/api"
	"audioeq-backend-go/internal/config"
	"audioeq-backend-go/internal/core"
	"audioeq-backend-go/internal/db"
	"audioeq-backend-go/internal/mailer"
	"audioeq-backend-go/internal/middleware"
	"audioeq-backend-go/internal/payments"
)

func main() {
	// --- 1. Load .env (local development convenience; no-op in production) ---
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment.")
	}

	// --- 2. Initialize Logger (Zap) ---
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Zap logger initialized successfully.")

	// --- 3. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded successfully.")

	// --- 4. Open the local license store (SQLite) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()

	sqliteDB, err := db.OpenSQLite(initCtx, appConfig.SQLitePath)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to open local license database", zap.Error(err))
	}
	defer sqliteDB.Close()
	zapLogger.Info("Local license database ready.", zap.String("path", appConfig.SQLitePath))

	// --- 5. Initialize Firestore (optional; local-only mode without it) ---
	// A missing or broken Firebase credential must not take payment processing
	// down with it, so initialization failure degrades instead of aborting.
	var userRepo db.UserRepository
	var promoRepo db.PromoRepository
	if appConfig.HasFirebase() {
		if err := db.InitFirestore(initCtx, appConfig); err != nil {
			zapLogger.Error("Firestore initialization failed; running in local-only mode", zap.Error(err))
		} else if firestoreClient := db.GetFirestoreClient(); firestoreClient != nil {
			userRepo = db.NewFirestoreUserRepository(firestoreClient)
			promoRepo = db.NewFirestorePromoRepository(firestoreClient)
			zapLogger.Info("Firestore initialized successfully.")
		}
	} else {
		zapLogger.Warn("No Firebase credentials configured; remote mirror and promo codes disabled.")
	}

	licenseRepo := db.NewSQLiteLicenseRepository(sqliteDB)

	// --- 6. Initialize Payment Provider Clients ---
	// Clients are constructed even without credentials; unconfigured calls
	// fail with payments.ErrNotConfigured and handlers answer 503.
	mercadoPagoClient := payments.NewMercadoPagoClient(appConfig.MPAccessToken, zapLogger)
	payPalClient := payments.NewPayPalClient(appConfig.PayPalClientID, appConfig.PayPalSecret, appConfig.PayPalAPIBase, zapLogger)
	officialPassClient := payments.NewOfficialPassClient(appConfig.OfficialPassValidateURL, appConfig.OfficialPassAPIKey, zapLogger)
	if !appConfig.HasMercadoPago() {
		zapLogger.Warn("MP_ACCESS_TOKEN not set; MercadoPago routes will answer 503.")
	}
	if !appConfig.HasPayPal() {
		zapLogger.Warn("PayPal credentials not set; /register-paypal will answer 503.")
	}

	// --- 7. Initialize Core Services ---
	licenseService := core.NewLicenseService(licenseRepo, userRepo, mercadoPagoClient, zapLogger)
	promoService := core.NewPromoService(appConfig.PremiumPassCode, promoRepo, officialPassClient, licenseService, zapLogger)
	userService := core.NewUserService(userRepo, zapLogger)

	supportMailer := mailer.New(appConfig.SMTPHost, appConfig.SMTPPort, appConfig.SMTPUser, appConfig.SMTPPass)
	supportService := core.NewSupportService(supportMailer, appConfig.SupportInbox, appConfig.SupportSender, zapLogger)
	zapLogger.Info("Core services initialized successfully.")

	// --- 8. Setup Gin HTTP Engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	// --- 9. Apply Global Middleware (Order is important) ---
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured.")
	}

	// --- 10. Setup API Routes ---
	api.SetupRoutes(
		router,
		appConfig,
		zapLogger,
		licenseService,
		promoService,
		userService,
		supportService,
		mercadoPagoClient,
		payPalClient,
	)

	// --- 11. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 12. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting gracefully.")
}
