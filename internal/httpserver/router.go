package httpserver

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"notaryorders/internal/domain"
	"notaryorders/internal/service/fulfillment"
	"notaryorders/internal/service/intake"
)

// Deps are the services the routes delegate to.
type Deps struct {
	Intake interface {
		Create(ctx context.Context, order *domain.Order) (*intake.Result, error)
		Get(ctx context.Context, id string) (*domain.Order, error)
	}
	Fulfillment interface {
		HandleEvent(ctx context.Context, ev fulfillment.Event) error
	}
	Ops OpsDeps
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps, allowedOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	// The intake form is a separate frontend; the webhook endpoint is
	// gateway-to-server and needs no CORS.
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	router.POST("/stripe-webhook/", webhookHandler(logger, deps.Fulfillment))
	router.POST("/orders", createOrderHandler(logger, deps.Intake))
	router.GET("/orders/:id", getOrderHandler(deps.Intake))

	registerOpsRoutes(router, deps.Ops)

	return router
}
