package api

import (
	"context"
	"time"

	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/gofiber/fiber/v2"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *logger.Logger
}

func NewAPIServer(listenAddress string, log *logger.Logger) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName: "FlashPrint API",
			// Generator uploads are capped at 20 MB; leave room for the form
			BodyLimit:    25 * 1024 * 1024,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 120 * time.Second,
		}),
		listenAddress: listenAddress,
		log:           log,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	s.log.Info("Starting API Server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
