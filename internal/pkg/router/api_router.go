package router

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/subdeckhq/subdeck/app/controllers"
	"github.com/subdeckhq/subdeck/app/repository"
	"github.com/subdeckhq/subdeck/internal/pkg/billing"
	"github.com/subdeckhq/subdeck/internal/pkg/cache"
	"github.com/subdeckhq/subdeck/internal/pkg/constants"
	"github.com/subdeckhq/subdeck/internal/pkg/database"
	"github.com/subdeckhq/subdeck/internal/pkg/env"
	"github.com/subdeckhq/subdeck/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// One gateway per process; the client handle is stateless, so sharing it
	// across concurrent requests is an optimization, not a dependency.
	gateway, err := billing.NewStripeGatewayFromEnv()
	if err != nil {
		log.Fatalf("stripe gateway setup failed: %v", err)
	}

	db := database.GetDB()
	mappingRepo := repository.NewCustomerMappingRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)

	store := billing.NewSnapshotStore(cache.GetClient())
	resolver := billing.NewCustomerResolver(mappingRepo)
	syncEngine := billing.NewSyncEngine(gateway, store)

	subscriptionCtrl := controllers.NewSubscriptionController(resolver, store, syncEngine)
	billingCtrl := controllers.NewBillingController(gateway, resolver)
	webhookCtrl := controllers.NewWebhookController(gateway, syncEngine, eventRepo, env.GetEnv("STRIPE_WEBHOOK_SECRET", ""))
	provisionCtrl := controllers.NewProvisionController(billing.NewProvisioner(gateway, mappingRepo))

	api := app.Group("/api", limiter.New(), cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type," + constants.HeaderAuthSubject,
	}))

	v1 := api.Group("/v1", middleware.IdentityMiddleware())
	v1.Get(constants.SubscriptionStatusRoute, subscriptionCtrl.HandleSubscriptionStatus)
	v1.Get(constants.SubscriptionEntitlementsRoute, subscriptionCtrl.HandleSubscriptionEntitlements)
	v1.Post(constants.BillingPortalRoute, billingCtrl.HandleCreateBillingPortal)
	v1.Post(constants.BillingCheckoutRoute, billingCtrl.HandleCreateCheckoutSession)
	v1.Get(constants.BillingPlansRoute, billingCtrl.HandleListPlans)

	// Webhooks and provisioning bypass the identity middleware: Stripe signs
	// its deliveries, and provisioning is called by the identity provider.
	app.Post(constants.StripeWebhookRoute, webhookCtrl.HandleStripeWebhook)
	app.Post(constants.ProvisionRoute, provisionCtrl.HandleProvisionCustomer)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
