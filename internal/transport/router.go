package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/prompt-workshop/internal/domain/event"
	porteventbus "github.com/alanyang/prompt-workshop/internal/port/eventbus"
	portidem "github.com/alanyang/prompt-workshop/internal/port/idempotency"
	librarysvc "github.com/alanyang/prompt-workshop/internal/service/library"
	studiosvc "github.com/alanyang/prompt-workshop/internal/service/studio"

	libraryhandler "github.com/alanyang/prompt-workshop/internal/transport/library"
	studiohandler "github.com/alanyang/prompt-workshop/internal/transport/studio"
	wshandler "github.com/alanyang/prompt-workshop/internal/transport/ws"
)

// Deps groups what the router mounts. MCP, Metrics and Idempotency are optional.
type Deps struct {
	Studio      *studiosvc.Service
	Library     *librarysvc.Service
	EventBus    porteventbus.EventBus
	Idempotency portidem.Repository
	MCP         http.Handler
	Metrics     http.Handler
}

func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "saved": d.Library.Len()})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	if d.MCP != nil {
		r.Any("/mcp", gin.WrapH(d.MCP))
	}

	api := r.Group("/api")
	api.Use(IdempotencyMiddleware(d.Idempotency))

	studiohandler.Register(api.Group("/studio"), d.Studio)
	libraryhandler.Register(api.Group("/library"), d.Library, d.Studio)

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	// Bridge: one subscription per channel. Events carry ids only; browsers
	// refetch the studio or library view when one arrives.
	for _, ch := range event.Channels {
		c := ch
		if _, err := d.EventBus.Subscribe(ctx, c, func(_ context.Context, e event.Event) {
			hub.Broadcast(e)
		}); err != nil {
			slog.Error("failed to subscribe channel to WS hub", "channel", c, "error", err)
		}
	}

	return r
}
