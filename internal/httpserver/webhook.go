package httpserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"notaryorders/internal/service/fulfillment"
)

type webhookEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type eventHandler interface {
	HandleEvent(ctx context.Context, ev fulfillment.Event) error
}

// webhookHandler consumes gateway event deliveries. 400 means the
// payload is unusable and must not be redelivered; 200 covers
// processed, deduplicated, and permanently-failed events; 500 asks the
// gateway to redeliver.
func webhookHandler(logger *log.Logger, svc eventHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var env webhookEnvelope
		if err := c.ShouldBindJSON(&env); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		if env.ID == "" || env.Type == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing event id or type"})
			return
		}

		err := svc.HandleEvent(c.Request.Context(), fulfillment.Event{
			ID:     env.ID,
			Type:   env.Type,
			Object: env.Data.Object,
		})
		if err != nil {
			logger.Printf("event %s (%s) not processed: %v", env.ID, env.Type, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "event not processed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
