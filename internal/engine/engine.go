// Package engine bundles the four technical engine results for one series.
package engine

import (
	"signalfuse/internal/domain"
	"signalfuse/internal/engine/fibonacci"
	"signalfuse/internal/engine/inflection"
	"signalfuse/internal/engine/levels"
	"signalfuse/internal/engine/pattern"
)

// PatternTrinity is the learned-statistics key for a fully satisfied gate.
const PatternTrinity = "trinity_complete"

// Named setups tracked by the adaptive layer besides chart patterns.
const (
	PatternSupportBounce = "support_bounce"
	PatternFiboSupport   = "fibo_support"
)

var bullishReversals = map[string]bool{
	"double_bottom":          true,
	"triple_bottom":          true,
	"inverse_head_shoulders": true,
}

type Technical struct {
	Inflection inflection.Result `json:"inflection"`
	Pattern    pattern.Result    `json:"pattern"`
	Levels     levels.Result     `json:"levels"`
	Fibonacci  fibonacci.Result  `json:"fibonacci"`
}

// Headers returns the shared result headers in a fixed order.
func (t Technical) Headers() []domain.EngineResult {
	return []domain.EngineResult{
		t.Inflection.EngineResult, t.Pattern.EngineResult,
		t.Levels.EngineResult, t.Fibonacci.EngineResult,
	}
}

func (t Technical) TrinityComplete() bool {
	return t.Inflection.OK() && t.Inflection.Trinity.Complete()
}

func (t Technical) Vetoed() bool {
	return t.Inflection.OK() && t.Inflection.LongHorizon.Veto
}

// FiringSetups names the setups matched against learned statistics when
// scoring a fresh analysis.
func (t Technical) FiringSetups() []string {
	var out []string
	if t.TrinityComplete() {
		out = append(out, PatternTrinity)
	}
	if t.Pattern.OK() && (t.Pattern.Signal == pattern.SignalBuy || t.Pattern.Signal == pattern.SignalStrongBuy) {
		for _, d := range t.Pattern.Detected {
			if bullishReversals[d.Pattern] {
				out = append(out, d.Pattern)
			}
		}
	}
	if t.Levels.OK() && t.Levels.Signal == levels.RegimeNearSupport {
		out = append(out, PatternSupportBounce)
	}
	if t.Fibonacci.OK() && (t.Fibonacci.Signal == fibonacci.SignalSupport || t.Fibonacci.Signal == fibonacci.SignalSupportStrong) {
		out = append(out, PatternFiboSupport)
	}
	return out
}

// EntryPatterns names the patterns credited with a trade's outcome: the
// complete gate plus every detected chart or candle pattern.
func (t Technical) EntryPatterns() []string {
	var out []string
	if t.TrinityComplete() {
		out = append(out, PatternTrinity)
	}
	if t.Pattern.OK() {
		out = append(out, t.Pattern.Names()...)
	}
	return out
}
