// Package server exposes the HTTP API: upload and scoring, PayPal
// checkout, and gated report download.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LukaSashic/gruenderai/internal/analysis"
	"github.com/LukaSashic/gruenderai/internal/config"
	"github.com/LukaSashic/gruenderai/internal/delivery"
	"github.com/LukaSashic/gruenderai/internal/payment"
	"github.com/LukaSashic/gruenderai/internal/store"
	"github.com/LukaSashic/gruenderai/internal/telemetry"
)

// PaymentProvider is the slice of the PayPal client the handlers use.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, analysisID, returnURL, cancelURL string) (payment.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (payment.Order, error)
	GetOrder(ctx context.Context, orderID string) (payment.Order, error)
}

// Enqueuer accepts fulfillment jobs after a successful capture.
type Enqueuer interface {
	Enqueue(job delivery.Job)
}

type Server struct {
	cfg        *config.Config
	store      store.Store
	requester  analysis.Requester
	normalizer *analysis.Normalizer
	payments   PaymentProvider
	deliveries Enqueuer
	tracer     *telemetry.Provider
	log        *zap.SugaredLogger
	engine     *gin.Engine
	httpSrv    *http.Server
	now        func() time.Time
}

type Options struct {
	Config     *config.Config
	Store      store.Store
	Requester  analysis.Requester
	Payments   PaymentProvider
	Deliveries Enqueuer
	Tracer     *telemetry.Provider
	Log        *zap.SugaredLogger
}

func New(opts Options) *Server {
	s := &Server{
		cfg:        opts.Config,
		store:      opts.Store,
		requester:  opts.Requester,
		normalizer: analysis.NewNormalizer(opts.Config.Scoring),
		payments:   opts.Payments,
		deliveries: opts.Deliveries,
		tracer:     opts.Tracer,
		log:        opts.Log,
		now:        time.Now,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLog(), s.cors())

	engine.GET("/", s.handleRoot)
	engine.GET("/health", s.handleHealth)

	api := engine.Group("/api")
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/create-payment", s.handleCreatePayment)
	api.POST("/capture-payment", s.handleCapturePayment)
	api.GET("/download-report/:id", s.handleDownloadReport)
	api.GET("/order-status/:id", s.handleOrderStatus)

	s.engine = engine
	s.httpSrv = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests and for the HTTP server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Run(addr string) error {
	s.httpSrv.Addr = addr
	s.log.Infow("listening", "addr", addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight
// requests, bounded by ctx. Run returns http.ErrServerClosed.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) cors() gin.HandlerFunc {
	origin := s.cfg.Server.FrontendURL
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "GrunderAI Businessplan-Analyse",
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
