package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"notaryorders/internal/domain"
	"notaryorders/internal/service/intake"
)

type orderService interface {
	Create(ctx context.Context, order *domain.Order) (*intake.Result, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
}

func createOrderHandler(logger *log.Logger, svc orderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var order domain.Order
		if err := c.ShouldBindJSON(&order); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order payload"})
			return
		}

		res, err := svc.Create(c.Request.Context(), &order)
		switch {
		case errors.Is(err, intake.ErrSessionNotStarted):
			// The order row exists; the customer can be sent a new
			// checkout link once the gateway recovers.
			logger.Printf("order %s created without a session: %v", res.Order.ID, err)
			c.JSON(http.StatusCreated, gin.H{
				"order":   res.Order,
				"message": "order created, but payment session could not be started",
			})
		case errors.Is(err, intake.ErrInvalidOrder):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case err != nil:
			logger.Printf("order create failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		default:
			c.JSON(http.StatusCreated, res)
		}
	}
}

func getOrderHandler(svc orderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := svc.Get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
