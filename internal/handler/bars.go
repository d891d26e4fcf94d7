package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"signalfuse/internal/domain"
)

const maxLookback = 2000

type barInput struct {
	Date           string   `json:"date" binding:"required"`
	Open           float64  `json:"open" binding:"gt=0"`
	High           float64  `json:"high" binding:"gt=0"`
	Low            float64  `json:"low" binding:"gt=0"`
	Close          float64  `json:"close" binding:"gt=0"`
	Volume         float64  `json:"volume" binding:"gte=0"`
	ForeignNet     *float64 `json:"foreign_net,omitempty"`
	InstitutionNet *float64 `json:"institution_net,omitempty"`
}

type ingestRequest struct {
	Bars []barInput `json:"bars" binding:"required,min=1,max=5000,dive"`
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	return t.UTC(), err
}

func lookbackParam(c *gin.Context, fallback int) int {
	if l := c.Query("lookback"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxLookback {
			return n
		}
	}
	return fallback
}

// IngestBars godoc
// @Summary      Upsert daily bars
// @Description  Validates and stores daily OHLCV bars for an instrument, oldest first
// @Tags         bars
// @Accept       json
// @Produce      json
// @Param        code  path  string         true  "Instrument code (e.g., 005930)"
// @Param        body  body  ingestRequest  true  "Bars"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /bars/{code} [post]
func (h *Handler) IngestBars(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.ingest-bars")
	defer span.End()

	if h.deps.Bars == nil {
		unavailable(c, "bar store")
		return
	}
	code, ok := validCode(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("code", code))

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := domain.Series{Code: code, Bars: make([]domain.Bar, 0, len(req.Bars))}
	for _, in := range req.Bars {
		d, err := parseDate(in.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date: " + in.Date})
			return
		}
		s.Bars = append(s.Bars, domain.Bar{
			Date: d, Open: in.Open, High: in.High, Low: in.Low, Close: in.Close, Volume: in.Volume,
			ForeignNet: in.ForeignNet, InstitutionNet: in.InstitutionNet,
		})
	}
	if err := s.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.deps.Bars.UpsertBars(ctx, code, s.Bars); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "upserted": len(s.Bars)})
}

// GetBars godoc
// @Summary      Read daily bars
// @Description  Returns the most recent bars for an instrument, oldest first
// @Tags         bars
// @Produce      json
// @Param        code      path   string  true   "Instrument code"
// @Param        lookback  query  int     false  "Number of bars (max 2000)"  default(300)
// @Success      200  {object}  domain.Series
// @Failure      400  {object}  map[string]string
// @Router       /bars/{code} [get]
func (h *Handler) GetBars(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-bars")
	defer span.End()

	if h.deps.Bars == nil {
		unavailable(c, "bar store")
		return
	}
	code, ok := validCode(c)
	if !ok {
		return
	}
	s, err := h.deps.Bars.GetSeries(ctx, code, lookbackParam(c, 300))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.Code = code
	if s.Bars == nil {
		s.Bars = []domain.Bar{}
	}
	c.JSON(http.StatusOK, s)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidBar), errors.Is(err, domain.ErrUnorderedSeries):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
