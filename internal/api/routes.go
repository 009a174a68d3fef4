package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audioeq-backend-go/internal/config"
	"audioeq-backend-go/internal/core"
)

// SetupRoutes configures all the application routes with their handlers.
// Global middleware (logging, recovery, CORS) is applied to the router
// before this function is called, in main.go.
//
// The surface is flat and unversioned; the paths are the contract the
// extension and web frontend already speak.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	licenseService core.LicenseService,
	promoService core.PromoService,
	userService core.UserService,
	supportService core.SupportService,
	mercadoPago core.MercadoPagoGateway,
	payPal core.PayPalGateway,
) {
	paymentHandler := NewPaymentHandler(appConfig, mercadoPago, payPal, licenseService, logger)
	licenseHandler := NewLicenseHandler(licenseService, promoService, logger)
	userHandler := NewUserHandler(userService, logger)
	supportHandler := NewSupportHandler(supportService, logger)

	// Payment flows. The webhook is called by the provider, everything else
	// by the client; none carry bearer auth — the webhook authenticates by
	// re-fetching the payment from the provider.
	router.POST("/create-payment", paymentHandler.CreatePayment)
	router.POST("/process_payment", paymentHandler.ProcessPayment)
	router.POST("/webhook/mercadopago", paymentHandler.Webhook)
	router.POST("/register-paypal", paymentHandler.RegisterPayPal)

	// Entitlement.
	router.GET("/check-license", licenseHandler.CheckLicense)
	router.POST("/verify-app-pass", licenseHandler.VerifyAppPass)
	router.POST("/verify-official-app-pass", licenseHandler.VerifyOfficialAppPass)
	router.POST("/restore-purchase", licenseHandler.RestorePurchase)

	// Profile sync and support.
	router.POST("/sync-user", userHandler.SyncUser)
	router.POST("/api/support", supportHandler.SendSupport)

	// Banner kept verbatim; the extension's connectivity check matches on it.
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Smart Audio EQ API is running")
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	logger.Info("API routes configured successfully.")
}
