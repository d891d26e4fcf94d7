package fusion

import (
	"fmt"
	"math"
	"strings"

	"signalfuse/internal/engine"
	"signalfuse/internal/engine/fibonacci"
	"signalfuse/internal/engine/inflection"
	"signalfuse/internal/engine/levels"
	"signalfuse/internal/ta"
)

const (
	compoundStrongFloor = 100
	compoundStrongCap   = 95
	compoundCap         = 80
	compoundTieConf     = 50
)

// Compound is a buy/sell tally over the technical engines alone, reported
// next to the fused decision as a cross-check.
type Compound struct {
	BuyScore   int     `json:"buy_score"`
	SellScore  int     `json:"sell_score"`
	Signal     string  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
}

// CompoundSignal tallies the technical engines. The long-horizon veto clears
// every buy point and forces ABSOLUTE_NO_BUY.
func CompoundSignal(tech engine.Technical) Compound {
	var c Compound

	if p := tech.Pattern; p.OK() {
		switch {
		case strings.Contains(p.Signal, "BUY"):
			c.BuyScore += p.BuyCount * 10
		case strings.Contains(p.Signal, "SELL"):
			c.SellScore += p.SellCount * 10
		}
	}
	if fb := tech.Fibonacci; fb.OK() {
		switch fb.Signal {
		case fibonacci.SignalSupport, fibonacci.SignalSupportStrong, fibonacci.SignalExtensionTarget:
			c.BuyScore += 15
		}
	}
	if lv := tech.Levels; lv.OK() {
		switch lv.Signal {
		case levels.RegimeUptrend:
			c.BuyScore += 20
		case levels.RegimeDowntrend:
			c.SellScore += 20
		case levels.RegimeNearSupport:
			c.BuyScore += 10
		case levels.RegimeNearResistance:
			c.SellScore += 10
		}
	}
	vetoed := false
	if inf := tech.Inflection; inf.OK() {
		switch inf.Signal {
		case inflection.SignalUltimateBuy:
			c.BuyScore += 100
		case inflection.SignalStrongBuy:
			c.BuyScore += 80
		case inflection.SignalBuy:
			c.BuyScore += 50
		case inflection.SignalAbsoluteNoBuy:
			c.SellScore += 100
			c.BuyScore = 0
			vetoed = true
		}
	}

	buy, sell := float64(c.BuyScore), float64(c.SellScore)
	switch {
	case c.BuyScore+c.SellScore == 0:
		c.Signal, c.Confidence = "HOLD", 0
	case buy > sell*2 && c.BuyScore >= compoundStrongFloor:
		c.Signal, c.Confidence = "STRONG_BUY", math.Min(compoundStrongCap, buy/(buy+sell)*100)
	case buy > sell:
		c.Signal, c.Confidence = "BUY", math.Min(compoundCap, buy/(buy+sell)*100)
	case sell > buy*2 && c.SellScore >= compoundStrongFloor:
		c.Signal, c.Confidence = "STRONG_SELL", math.Min(compoundStrongCap, sell/(buy+sell)*100)
	case sell > buy:
		c.Signal, c.Confidence = "SELL", math.Min(compoundCap, sell/(buy+sell)*100)
	default:
		c.Signal, c.Confidence = "HOLD", compoundTieConf
	}
	if vetoed {
		c.Signal, c.Confidence = inflection.SignalAbsoluteNoBuy, inflection.VetoConfidence
	}
	c.Confidence = ta.Round(c.Confidence, 2)
	c.Summary = summary(tech, c)
	return c
}

func summary(tech engine.Technical, c Compound) string {
	var parts []string
	if names := tech.Pattern.Names(); len(names) > 0 {
		if len(names) > 3 {
			names = names[:3]
		}
		parts = append(parts, "patterns: "+strings.Join(names, ", "))
	}
	if fb := tech.Fibonacci; fb.OK() && fb.Signal != fibonacci.SignalHold {
		parts = append(parts, "fibonacci: "+fb.Signal)
	}
	if lv := tech.Levels; lv.OK() {
		parts = append(parts, "levels: "+lv.Signal)
	}
	if inf := tech.Inflection; inf.OK() && inf.Trinity.Count >= 2 {
		parts = append(parts, fmt.Sprintf("inflection: %s (trinity %d/3)", inf.Trinity.Signal, inf.Trinity.Count))
	}
	parts = append(parts, fmt.Sprintf("final: %s (%.2f%%)", c.Signal, c.Confidence))
	return strings.Join(parts, " | ")
}
