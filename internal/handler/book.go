package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"signalfuse/internal/domain"
	"signalfuse/internal/learning"
)

// ListPositions godoc
// @Summary      Open positions
// @Tags         trading
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /positions [get]
func (h *Handler) ListPositions(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-positions")
	defer span.End()

	if h.deps.Positions == nil {
		unavailable(c, "position book")
		return
	}
	positions, err := h.deps.Positions.Positions(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

// ListTrades godoc
// @Summary      Trade history
// @Description  Returns closed trades in ledger order, optionally for one instrument
// @Tags         trading
// @Produce      json
// @Param        code  query  string  false  "Instrument code"
// @Success      200  {object}  map[string]interface{}
// @Router       /trades [get]
func (h *Handler) ListTrades(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-trades")
	defer span.End()

	if h.deps.Trades == nil {
		unavailable(c, "trade ledger")
		return
	}
	var (
		trades []domain.TradeRecord
		err    error
	)
	if code := c.Query("code"); code != "" {
		trades, err = h.deps.Trades.ListByCode(ctx, code)
	} else {
		trades, err = h.deps.Trades.List(ctx)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if trades == nil {
		trades = []domain.TradeRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// Performance godoc
// @Summary      Performance summary
// @Tags         learning
// @Produce      json
// @Success      200  {object}  learning.Performance
// @Router       /performance [get]
func (h *Handler) Performance(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.performance")
	defer span.End()

	if h.deps.Learning == nil {
		unavailable(c, "learning")
		return
	}
	perf, err := h.deps.Learning.Analyze(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, perf)
}

// BestPatterns godoc
// @Summary      Best learned patterns
// @Description  Patterns with at least five trades ranked by win rate and average return
// @Tags         learning
// @Produce      json
// @Param        n  query  int  false  "How many patterns (max 50)"  default(5)
// @Success      200  {object}  map[string]interface{}
// @Router       /patterns/best [get]
func (h *Handler) BestPatterns(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.best-patterns")
	defer span.End()

	if h.deps.Learning == nil {
		unavailable(c, "learning")
		return
	}
	n := learning.DefaultTopN
	if v := c.Query("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 50 {
			n = parsed
		}
	}
	best, err := h.deps.Learning.BestPatterns(ctx, n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if best == nil {
		best = []learning.PatternScore{}
	}
	c.JSON(http.StatusOK, gin.H{"patterns": best})
}
