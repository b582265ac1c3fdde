package server

import (
	"net/http"
	"time"

	"github.com/avkuzmin/logistics-backend/internal/config"
	"github.com/avkuzmin/logistics-backend/internal/handler"
	appmw "github.com/avkuzmin/logistics-backend/internal/middleware"
	"github.com/avkuzmin/logistics-backend/internal/notify"
	"github.com/avkuzmin/logistics-backend/internal/repository"
	"github.com/avkuzmin/logistics-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

// Repositories groups the storage backends the server runs on; filled either
// from gorm or from the in-memory store.
type Repositories struct {
	Orders        repository.OrderRepository
	Tracking      repository.TrackingRepository
	Tickets       repository.TicketRepository
	Chat          repository.ChatRepository
	Users         repository.UserRepository
	Notifications repository.NotificationRepository
}

func GormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Orders:        repository.NewOrderRepository(db),
		Tracking:      repository.NewTrackingRepository(db),
		Tickets:       repository.NewTicketRepository(db),
		Chat:          repository.NewChatRepository(db),
		Users:         repository.NewUserRepository(db),
		Notifications: repository.NewNotificationRepository(db),
	}
}

func MemoryRepositories(m *repository.Memory) Repositories {
	return Repositories{
		Orders:        m.Orders(),
		Tracking:      m.Tracking(),
		Tickets:       m.Tickets(),
		Chat:          m.Chat(),
		Users:         m.Users(),
		Notifications: m.Notifications(),
	}
}

type Server struct {
	e *echo.Echo
}

func New(cfg *config.Config, repos Repositories, sink notify.Notifier) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 15 * time.Second,
	}))

	notifications := service.NewNotificationService(repos.Notifications, sink)
	userSvc := service.NewUserService(repos.Users)
	orderSvc := service.NewOrderService(repos.Orders, repos.Tracking, notifications)
	offerSvc := service.NewOfferService(repos.Orders, notifications)
	ticketSvc := service.NewTicketService(repos.Tickets, repos.Orders, notifications)
	chatSvc := service.NewChatService(repos.Chat, repos.Orders, notifications)
	statsSvc := service.NewStatsService(repos.Orders, repos.Tickets, repos.Users)

	authHandler := handler.NewAuthHandler(cfg.BotToken, userSvc)
	orderHandler := handler.NewOrderHandler(orderSvc, offerSvc)
	ticketHandler := handler.NewTicketHandler(ticketSvc)
	chatHandler := handler.NewChatHandler(chatSvc)
	userHandler := handler.NewUserHandler(userSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	notificationHandler := handler.NewNotificationHandler(notifications)

	authMw := appmw.NewAuthMiddleware(cfg.BotToken, userSvc)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})
	e.POST("/auth", authHandler.Auth)

	api := e.Group("/api", authMw.RequireAuth)

	api.GET("/orders", orderHandler.List)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/:id", orderHandler.Get)
	api.PUT("/orders/:id/status", orderHandler.UpdateStatus)
	api.POST("/orders/:id/assign", orderHandler.Assign)
	api.POST("/orders/:id/offer", orderHandler.SendOffer)
	api.POST("/orders/:id/accept-offer", orderHandler.RespondOffer)
	api.GET("/orders/:id/tracking", orderHandler.Tracking)
	api.POST("/orders/:id/contact-logist", ticketHandler.ContactLogist)

	api.GET("/tickets", ticketHandler.List)
	api.POST("/tickets/:id/accept", ticketHandler.Accept)
	api.POST("/tickets/:id/close", ticketHandler.Close)

	api.GET("/chat/:orderId", chatHandler.List)
	api.POST("/chat/:orderId/send", chatHandler.Send)

	api.GET("/user", userHandler.Me)
	api.PUT("/user", userHandler.UpdateMe)
	api.GET("/users", userHandler.List)
	api.PUT("/users/:id/role", userHandler.SetRole)

	api.GET("/stats", statsHandler.Stats)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/read", notificationHandler.MarkRead)

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.e
}
