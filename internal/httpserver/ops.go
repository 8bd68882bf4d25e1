package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"notaryorders/internal/domain"
)

// OpsDeps are the read stores behind the back-office inspection routes.
// They answer the questions support actually asks: what did the ledger
// record for this event, what does the gateway mirror say, which cached
// contact or dispatch client did the saga use.
type OpsDeps struct {
	Events interface {
		GetByID(ctx context.Context, eventID string) (*domain.WebhookEvent, error)
	}
	Mirrors interface {
		GetCharge(ctx context.Context, chargeID string) (*domain.Charge, error)
		GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
	}
	Contacts interface {
		GetByID(ctx context.Context, id string) (*domain.Contact, error)
	}
	DispatchClients interface {
		ListClients(ctx context.Context) ([]domain.DispatchClient, error)
		GetClient(ctx context.Context, id int64) (*domain.DispatchClient, error)
	}
}

func registerOpsRoutes(router *gin.Engine, deps OpsDeps) {
	ops := router.Group("/ops")
	ops.GET("/events/:id", func(c *gin.Context) {
		ev, err := deps.Events.GetByID(c.Request.Context(), c.Param("id"))
		respond(c, ev, err)
	})
	ops.GET("/charges/:id", func(c *gin.Context) {
		ch, err := deps.Mirrors.GetCharge(c.Request.Context(), c.Param("id"))
		respond(c, ch, err)
	})
	ops.GET("/sessions/:id", func(c *gin.Context) {
		sess, err := deps.Mirrors.GetSession(c.Request.Context(), c.Param("id"))
		respond(c, sess, err)
	})
	ops.GET("/contacts/:id", func(c *gin.Context) {
		contact, err := deps.Contacts.GetByID(c.Request.Context(), c.Param("id"))
		respond(c, contact, err)
	})
	ops.GET("/dispatch-clients", func(c *gin.Context) {
		clients, err := deps.DispatchClients.ListClients(c.Request.Context())
		respond(c, clients, err)
	})
	ops.GET("/dispatch-clients/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "client id must be numeric"})
			return
		}
		client, err := deps.DispatchClients.GetClient(c.Request.Context(), id)
		respond(c, client, err)
	})
}

func respond(c *gin.Context, body any, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusOK, body)
	}
}
