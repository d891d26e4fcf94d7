// Package handler exposes the analysis pipeline, the position book and the
// learned statistics over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
	"signalfuse/internal/learning"
	"signalfuse/internal/service"
)

var validate = validator.New()

type Analyzer interface {
	Analyze(ctx context.Context, code string, lookback int) (service.Report, error)
}

type ReportReader interface {
	Get(ctx context.Context, code string, dst any) (bool, error)
}

type Trader interface {
	Trade(ctx context.Context, code string) (service.TradeResult, error)
}

type ScanRunner interface {
	RunOnce(ctx context.Context) (service.CycleReport, error)
	LastRun() time.Time
}

type BarStore interface {
	UpsertBars(ctx context.Context, code string, bars []domain.Bar) error
	GetSeries(ctx context.Context, code string, lookback int) (domain.Series, error)
}

type PositionLister interface {
	Positions(ctx context.Context) ([]domain.Position, error)
}

type TradeLister interface {
	List(ctx context.Context) ([]domain.TradeRecord, error)
	ListByCode(ctx context.Context, code string) ([]domain.TradeRecord, error)
}

type Learning interface {
	Analyze(ctx context.Context) (learning.Performance, error)
	BestPatterns(ctx context.Context, n int) ([]learning.PatternScore, error)
}

// Deps are the collaborators behind the routes. A nil dependency makes its
// routes answer 503.
type Deps struct {
	Analyzer  Analyzer
	Reports   ReportReader
	Trader    Trader
	Scanner   ScanRunner
	Bars      BarStore
	Positions PositionLister
	Trades    TradeLister
	Learning  Learning
	Metrics   http.Handler
}

type Handler struct {
	tracer trace.Tracer
	deps   Deps
	apiKey string
}

func New(tracer trace.Tracer, deps Deps, apiKey string) *Handler {
	return &Handler{tracer: tracer, deps: deps, apiKey: apiKey}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	if h.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.deps.Metrics))
	}

	guarded := APIKeyAuth(h.apiKey)
	r.POST("/bars/:code", guarded, h.IngestBars)
	r.GET("/bars/:code", h.GetBars)
	r.GET("/analyze/:code", h.Analyze)
	r.POST("/trade/:code", guarded, h.Trade)
	r.POST("/scan", guarded, h.Scan)
	r.GET("/positions", h.ListPositions)
	r.GET("/trades", h.ListTrades)
	r.GET("/performance", h.Performance)
	r.GET("/patterns/best", h.BestPatterns)
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " not configured"})
}

func validCode(c *gin.Context) (string, bool) {
	code := c.Param("code")
	if err := validate.Var(code, "required,alphanum,max=12"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid instrument code: " + code})
		return "", false
	}
	return code, true
}
