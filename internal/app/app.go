package app

import (
	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/CampusConnect/internal/config"
	"github.com/preetsinghmakkar/CampusConnect/internal/dtos"
	"github.com/preetsinghmakkar/CampusConnect/internal/events"
	"github.com/preetsinghmakkar/CampusConnect/internal/handlers"
	"github.com/preetsinghmakkar/CampusConnect/internal/metrics"
	"github.com/preetsinghmakkar/CampusConnect/internal/presence"
	"github.com/preetsinghmakkar/CampusConnect/internal/repositories"
	"github.com/preetsinghmakkar/CampusConnect/internal/routes"
	"github.com/preetsinghmakkar/CampusConnect/internal/services"
	ws "github.com/preetsinghmakkar/CampusConnect/internal/websocket"
	"github.com/rs/zerolog"
)

// Deps are the infrastructure pieces opened by the caller. Zero values fall
// back to in-memory implementations.
type Deps struct {
	Config         *config.Config
	Log            zerolog.Logger
	Sessions       repositories.SessionRepository
	Messages       repositories.MessageRepository
	Registry       ws.Registry
	Broker         ws.Broker
	Publishers     []events.Publisher
	PaymentGateway services.PaymentGateway
	HealthChecks   []handlers.HealthCheck
}

// App is the wired server.
type App struct {
	Router   *gin.Engine
	Hub      *ws.Hub
	Metrics  *metrics.Metrics
	Sessions *services.SessionService
	Messages *services.MessageService
	Payments *services.PaymentService
}

func New(d Deps) *App {
	cfg := d.Config
	if d.Sessions == nil {
		d.Sessions = repositories.NewMemorySessionRepository()
	}
	if d.Messages == nil {
		d.Messages = repositories.NewMemoryMessageRepository()
	}
	if d.Registry == nil {
		d.Registry = presence.NewMemoryRegistry()
	}

	dtos.RegisterValidators()
	m := metrics.New()

	var hubOpts []ws.HubOption
	if d.Broker != nil {
		hubOpts = append(hubOpts, ws.WithBroker(d.Broker))
	}
	hub := ws.NewHub(d.Registry, m, d.Log, hubOpts...)

	// the gateway always hears lifecycle events; extra publishers are optional
	publisher := append(events.Multi{hub}, d.Publishers...)

	sessionService := services.NewSessionService(d.Sessions, publisher, m, d.Log, cfg.Session.DefaultAmount)
	messageService := services.NewMessageService(d.Messages, hub, m, d.Log, cfg.Session.CallBaseURL)
	paymentService := services.NewPaymentService(sessionService, d.PaymentGateway, cfg.Payments.RazorpayKeyID, cfg.Payments.Currency, d.Log)

	sessionHandler := handlers.NewSessionHandler(sessionService)
	messageHandler := handlers.NewMessageHandler(messageService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	healthHandler := handlers.NewHealthHandler(d.Log, d.HealthChecks...)
	webSocketHandler := handlers.NewWebSocketHandler(hub, cfg.WebSocket, cfg.HTTP, d.Log)

	router := routes.NewRouter(cfg.HTTP, d.Log)
	routes.RegisterPublicEndpoints(router, healthHandler, paymentHandler, webSocketHandler, m.Handler(), cfg.Auth.JWTSecret)
	routes.RegisterProtectedEndpoints(router, sessionHandler, messageHandler, paymentHandler, cfg.Auth.JWTSecret)

	return &App{
		Router:   router,
		Hub:      hub,
		Metrics:  m,
		Sessions: sessionService,
		Messages: messageService,
		Payments: paymentService,
	}
}
