package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"signalfuse/internal/job"
	"signalfuse/internal/position"
	"signalfuse/internal/service"
)

// Analyze godoc
// @Summary      Analyze an instrument
// @Description  Runs the engines, the context scorers and the adaptive layer and returns the fused decision. cached=true serves the last stored report.
// @Tags         analysis
// @Produce      json
// @Param        code      path   string  true   "Instrument code"
// @Param        lookback  query  int     false  "Bars to analyze"  default(300)
// @Param        cached    query  bool    false  "Serve the last cached report"
// @Success      200  {object}  service.Report
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /analyze/{code} [get]
func (h *Handler) Analyze(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.analyze")
	defer span.End()

	if h.deps.Analyzer == nil {
		unavailable(c, "analyzer")
		return
	}
	code, ok := validCode(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("code", code))

	if c.Query("cached") == "true" {
		if h.deps.Reports == nil {
			unavailable(c, "report cache")
			return
		}
		var rep service.Report
		hit, err := h.deps.Reports.Get(ctx, code, &rep)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !hit {
			c.JSON(http.StatusNotFound, gin.H{"error": "no cached report for " + code})
			return
		}
		c.JSON(http.StatusOK, rep)
		return
	}

	rep, err := h.deps.Analyzer.Analyze(ctx, code, lookbackParam(c, service.DefaultLookback))
	if err != nil {
		span.RecordError(err)
		writeAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Trade godoc
// @Summary      Analyze and trade an instrument
// @Description  Applies the fused decision to the instrument's position: open, close, partial profit or hold
// @Tags         trading
// @Produce      json
// @Param        code  path  string  true  "Instrument code"
// @Success      200  {object}  service.TradeResult
// @Failure      401  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /trade/{code} [post]
func (h *Handler) Trade(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trade")
	defer span.End()

	if h.deps.Trader == nil {
		unavailable(c, "trader")
		return
	}
	code, ok := validCode(c)
	if !ok {
		return
	}
	res, err := h.deps.Trader.Trade(ctx, code)
	if err != nil {
		span.RecordError(err)
		writeAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Scan godoc
// @Summary      Run a trading cycle
// @Description  Checks open positions, scans the universe and buys the top candidates
// @Tags         trading
// @Produce      json
// @Success      200  {object}  service.CycleReport
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /scan [post]
func (h *Handler) Scan(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.scan")
	defer span.End()

	if h.deps.Scanner == nil {
		unavailable(c, "scanner")
		return
	}
	rep, err := h.deps.Scanner.RunOnce(ctx)
	if errors.Is(err, job.ErrCycleRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func writeAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientHistory):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, position.ErrPositionExists), errors.Is(err, position.ErrNoPosition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
	}
}
