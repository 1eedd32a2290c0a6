package daemon

import (
	"context"
	"dropwatch/internal/logger"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Server is the local control endpoint used by `dropwatch status` and
// `dropwatch stop`.
type Server struct {
	echo *echo.Echo
	orch *Orchestrator
	addr string
	log  *zap.Logger
}

func NewServer(orch *Orchestrator, port int, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo: e,
		orch: orch,
		addr: net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		log:  logger.OrNop(log),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)
}

func (s *Server) Start() {
	go func() {
		s.log.Info("control server started",
			zap.String("addr", s.addr))

		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("control server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleStop(c echo.Context) error {
	s.orch.RequestStop()
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}
