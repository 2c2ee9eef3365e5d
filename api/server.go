package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/smart-pump/api/handlers"
	"github.com/OldStager01/smart-pump/api/middleware"
	"github.com/OldStager01/smart-pump/api/websocket"
	"github.com/OldStager01/smart-pump/internal/control"
	"github.com/OldStager01/smart-pump/internal/holiday"
	"github.com/OldStager01/smart-pump/internal/metrics"
	"github.com/OldStager01/smart-pump/internal/pattern"
	"github.com/OldStager01/smart-pump/internal/sensors"
	"github.com/OldStager01/smart-pump/internal/usagelog"
	"github.com/OldStager01/smart-pump/pkg/config"
	"github.com/OldStager01/smart-pump/pkg/models"
)

// Deps are the components the status API reads from. Loop, Events and
// Metrics may be nil.
type Deps struct {
	Loop      handlers.StatusProvider
	Predictor control.Predictor
	Sensors   sensors.Source
	History   *pattern.Store
	Holidays  *holiday.Engine
	UsageLog  usagelog.Store
	Metrics   *metrics.Metrics
	Events    <-chan *models.Event
	Checks    map[string]handlers.HealthCheck
	Location  *time.Location
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.APIConfig
	deps       Deps
	wsHub      *websocket.Hub
	wsBridge   *websocket.EventBridge
}

func NewServer(cfg config.APIConfig, wsCfg config.WebSocketConfig, mode string, deps Deps) *Server {
	if mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	s := &Server{
		router: gin.New(),
		config: cfg,
		deps:   deps,
		wsHub:  websocket.NewHub(wsCfg),
	}

	s.setupMiddleware()
	s.setupRoutes()

	go s.wsHub.Run()

	if deps.Events != nil {
		s.wsBridge = websocket.NewEventBridge(s.wsHub, deps.Events)
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	s.router.Use(middleware.SecurityHeaders())
	if s.deps.Metrics != nil {
		s.router.Use(middleware.Metrics(s.deps.Metrics))
	}
}

func (s *Server) setupRoutes() {
	loc := s.deps.Location

	healthHandler := handlers.NewHealthHandler(s.deps.Checks)
	statusHandler := handlers.NewStatusHandler(s.deps.Loop)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)
	s.router.GET("/status", statusHandler.Get)

	if s.deps.Predictor != nil {
		predictionHandler := handlers.NewPredictionHandler(s.deps.Predictor, s.deps.Sensors, loc)
		s.router.GET("/prediction", predictionHandler.Get)
	}

	patternHandler := handlers.NewPatternHandler(s.deps.History, loc)
	s.router.GET("/patterns", patternHandler.Summary)
	s.router.GET("/patterns/similar", patternHandler.Similar)

	holidayHandler := handlers.NewHolidayHandler(s.deps.Holidays, loc)
	s.router.GET("/holidays/impact", holidayHandler.Impact)
	s.router.GET("/holidays/upcoming", holidayHandler.Upcoming)

	if s.deps.UsageLog != nil {
		usageHandler := handlers.NewUsageHandler(s.deps.UsageLog, s.config)
		s.router.GET("/usage/recent", usageHandler.Recent)
		s.router.GET("/usage/trend", usageHandler.Trend)
	}

	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	s.wsHub.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
