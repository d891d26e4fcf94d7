// Package levels derives support and resistance from a volume profile,
// swing pivots and unfilled gaps.
package levels

import (
	"sort"

	"signalfuse/internal/domain"
	"signalfuse/internal/ta"
)

const (
	Name    = "levels"
	MinBars = 60

	DefaultBins           = 100
	DefaultValueAreaShare = 0.7

	pivotRadius = 10
	keepPivots  = 5
	keepGaps    = 10
	keepPerSide = 5
	atrPeriod   = 14
	nearPct     = 2.0
	noLevelPct  = 100.0
)

const (
	RegimeUptrend        = "uptrend_structure"
	RegimeDowntrend      = "downtrend_structure"
	RegimeNearSupport    = "near_support"
	RegimeNearResistance = "near_resistance"
	RegimeNeutral        = "neutral"
)

type Kind string

const (
	KindPOC       Kind = "poc"
	KindVAL       Kind = "val"
	KindVAH       Kind = "vah"
	KindPivotLow  Kind = "pivot_low"
	KindPivotHigh Kind = "pivot_high"
	KindGapUp     Kind = "gap_up"
	KindGapDown   Kind = "gap_down"
)

type Level struct {
	Price float64 `json:"price"`
	Kind  Kind    `json:"kind"`
}

type Gap struct {
	Index int     `json:"index"`
	Kind  Kind    `json:"kind"`
	Level float64 `json:"level"`
}

type Result struct {
	domain.EngineResult
	Price                 float64 `json:"price"`
	Profile               Profile `json:"profile"`
	ATR                   float64 `json:"atr"`
	Supports              []Level `json:"supports"`
	Resistances           []Level `json:"resistances"`
	SupportDistancePct    float64 `json:"support_distance_pct"`
	ResistanceDistancePct float64 `json:"resistance_distance_pct"`
	Gaps                  []Gap   `json:"gaps"`
}

// NearestSupport reports the closest level below price, if any.
func (r Result) NearestSupport() (Level, bool) {
	if len(r.Supports) == 0 {
		return Level{}, false
	}
	return r.Supports[0], true
}

func (r Result) NearestResistance() (Level, bool) {
	if len(r.Resistances) == 0 {
		return Level{}, false
	}
	return r.Resistances[0], true
}

type Options struct {
	Bins           int     `yaml:"bins" json:"bins" default:"100" validate:"min=2"`
	ValueAreaShare float64 `yaml:"value_area_share" json:"value_area_share" default:"0.7" validate:"gt=0,lte=1"`
}

type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	if opts.Bins < 2 {
		opts.Bins = DefaultBins
	}
	if opts.ValueAreaShare <= 0 || opts.ValueAreaShare > 1 {
		opts.ValueAreaShare = DefaultValueAreaShare
	}
	return &Engine{opts: opts}
}

func (e *Engine) Analyze(s domain.Series) Result {
	if s.Len() < MinBars {
		return Result{EngineResult: domain.Insufficient(Name, MinBars, s.Len())}
	}
	highs, lows, closes := s.Highs(), s.Lows(), s.Closes()
	price := closes[len(closes)-1]

	res := Result{
		Price:   price,
		Profile: BuildProfile(highs, lows, s.Volumes(), e.opts.Bins, e.opts.ValueAreaShare),
		ATR:     atr(highs, lows, closes),
		Gaps:    findGaps(highs, lows),
	}

	var supports, resistances []Level
	if p := res.Profile; p.POC > 0 {
		if price > p.POC {
			supports = append(supports, Level{p.POC, KindPOC})
		} else if price < p.POC {
			resistances = append(resistances, Level{p.POC, KindPOC})
		}
		supports, resistances = placeLevel(supports, resistances, price, Level{p.VAL, KindVAL})
		supports, resistances = placeLevel(supports, resistances, price, Level{p.VAH, KindVAH})
	}
	for _, pv := range ta.LastPivots(ta.PivotLows(lows, pivotRadius), keepPivots) {
		if pv.Price < price {
			supports = append(supports, Level{pv.Price, KindPivotLow})
		}
	}
	for _, pv := range ta.LastPivots(ta.PivotHighs(highs, pivotRadius), keepPivots) {
		if pv.Price > price {
			resistances = append(resistances, Level{pv.Price, KindPivotHigh})
		}
	}
	for _, g := range res.Gaps {
		supports, resistances = placeLevel(supports, resistances, price, Level{g.Level, g.Kind})
	}

	sort.SliceStable(supports, func(i, j int) bool { return supports[i].Price > supports[j].Price })
	sort.SliceStable(resistances, func(i, j int) bool { return resistances[i].Price < resistances[j].Price })
	res.Supports = truncate(supports, keepPerSide)
	res.Resistances = truncate(resistances, keepPerSide)

	res.SupportDistancePct, res.ResistanceDistancePct = noLevelPct, noLevelPct
	if lv, ok := res.NearestSupport(); ok && price > 0 {
		res.SupportDistancePct = ta.Round((price-lv.Price)/price*100, 2)
	}
	if lv, ok := res.NearestResistance(); ok && price > 0 {
		res.ResistanceDistancePct = ta.Round((lv.Price-price)/price*100, 2)
	}

	res.EngineResult = domain.EngineResult{
		Engine:     Name,
		Status:     domain.StatusOK,
		Signal:     regime(res),
		Confidence: ta.Round(res.Profile.Share()*100, 2),
	}
	return res
}

func regime(r Result) string {
	p := r.Profile
	switch {
	case r.Price > p.POC && r.Price > p.VAL:
		return RegimeUptrend
	case r.Price < p.POC:
		return RegimeDowntrend
	case r.SupportDistancePct < nearPct:
		return RegimeNearSupport
	case r.ResistanceDistancePct < nearPct:
		return RegimeNearResistance
	default:
		return RegimeNeutral
	}
}

// placeLevel files lv on whichever side of price it sits; a level at price
// is dropped.
func placeLevel(sup, res []Level, price float64, lv Level) ([]Level, []Level) {
	switch {
	case lv.Price <= 0:
	case lv.Price < price:
		sup = append(sup, lv)
	case lv.Price > price:
		res = append(res, lv)
	}
	return sup, res
}

// findGaps records bars whose range does not overlap the previous bar.
func findGaps(highs, lows []float64) []Gap {
	var gaps []Gap
	for i := 1; i < len(highs); i++ {
		switch {
		case lows[i] > highs[i-1]:
			gaps = append(gaps, Gap{Index: i, Kind: KindGapUp, Level: highs[i-1]})
		case highs[i] < lows[i-1]:
			gaps = append(gaps, Gap{Index: i, Kind: KindGapDown, Level: lows[i-1]})
		}
	}
	if len(gaps) > keepGaps {
		gaps = gaps[len(gaps)-keepGaps:]
	}
	return gaps
}

// atr averages the last 14 true ranges, skipping the first bar which has no
// previous close.
func atr(highs, lows, closes []float64) float64 {
	if len(closes) < atrPeriod+1 {
		return 0
	}
	tr := ta.TrueRangeSeries(highs, lows, closes)[1:]
	return ta.Mean(tr[len(tr)-atrPeriod:])
}

func truncate(l []Level, n int) []Level {
	if l == nil {
		return []Level{}
	}
	if len(l) > n {
		return l[:n]
	}
	return l
}
