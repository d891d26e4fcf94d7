// Package fusion combines the technical engines, the market-context scorers
// and the adaptive layer into one scored, styled decision.
package fusion

import (
	"fmt"
	"strings"

	"signalfuse/internal/adaptive"
	"signalfuse/internal/domain"
	"signalfuse/internal/engine"
	"signalfuse/internal/engine/fibonacci"
	"signalfuse/internal/engine/levels"
	"signalfuse/internal/engine/pattern"
	"signalfuse/internal/ladder"
	"signalfuse/internal/scorer"
	"signalfuse/internal/ta"
)

type grade struct {
	action     domain.Action
	confidence string
}

// Actions maps the total score onto the seven-rung ladder.
var Actions = ladder.AtLeast[grade]{
	Rungs: []ladder.Rung[grade]{
		{Bound: 50, Label: grade{domain.ActionStrongBuy, "very_high"}},
		{Bound: 30, Label: grade{domain.ActionBuy, "high"}},
		{Bound: 10, Label: grade{domain.ActionWeakBuy, "medium"}},
		{Bound: -10, Label: grade{domain.ActionHold, "low"}},
		{Bound: -30, Label: grade{domain.ActionWeakSell, "low"}},
		{Bound: -50, Label: grade{domain.ActionSell, "medium"}},
	},
	Fallback: grade{domain.ActionStrongSell, "high"},
}

type Component struct {
	Total   int      `json:"total"`
	Details []string `json:"details"`
}

func (c *Component) add(points int, format string, args ...any) {
	c.Total += points
	c.Details = append(c.Details, fmt.Sprintf(format, args...)+fmt.Sprintf(" (%+d)", points))
}

type Decision struct {
	Technical     Component            `json:"technical"`
	Context       Component            `json:"context"`
	Adaptive      float64              `json:"adaptive"`
	Score         float64              `json:"score"`
	Action        domain.Action        `json:"action"`
	Confidence    string               `json:"confidence"`
	Style         domain.Style         `json:"style"`
	Votes         map[domain.Style]int `json:"votes"`
	HoldingPeriod string               `json:"holding_period"`
	Message       string               `json:"message"`
	Compound      Compound             `json:"compound"`
}

// Decide fuses one instrument's analysis into an action.
func Decide(tech engine.Technical, ctx scorer.Context, ad adaptive.Result) Decision {
	d := Decision{
		Technical: TechnicalScore(tech),
		Context:   contextScore(ctx),
		Adaptive:  ad.Score,
	}
	d.Score = ta.Round(float64(d.Technical.Total+d.Context.Total)+ad.Score, 1)
	g := Actions.Eval(d.Score)
	d.Action, d.Confidence = g.action, g.confidence

	votes := styleVotes(tech, ctx, ad)
	d.Style = domain.VoteStyle(votes...)
	d.Votes = map[domain.Style]int{}
	for _, v := range votes {
		if v.IsValid() {
			d.Votes[v]++
		}
	}
	d.HoldingPeriod = d.Style.HoldingPeriod()
	d.Message = message(d)
	d.Compound = CompoundSignal(tech)
	return d
}

// TechnicalScore weights the four engine outputs. Engines that did not run
// contribute nothing.
func TechnicalScore(tech engine.Technical) Component {
	c := Component{Details: []string{}}

	if inf := tech.Inflection; inf.OK() {
		if inf.Trinity.Complete() {
			c.add(30, "trinity complete")
		}
		if inf.Trinity.Lagging {
			c.add(10, "lagging span penetrated")
		}
		if inf.Trinity.Cloud {
			c.add(5, "bullish cloud")
		}
		if inf.Trinity.SlopeUp {
			c.add(5, "52-bar line rising")
		}
		if inf.Trinity.MajorOffset {
			c.add(5, "major offset flagged")
		}
		if inf.LongHorizon.Veto {
			c.add(-20, "bearish below the 300-bar average")
		}
	}

	if p := tech.Pattern; p.OK() {
		switch p.Signal {
		case pattern.SignalStrongBuy:
			c.add(20, "strong buy patterns")
		case pattern.SignalBuy:
			c.add(10, "buy patterns")
		case pattern.SignalStrongSell:
			c.add(-20, "strong sell patterns")
		case pattern.SignalSell:
			c.add(-10, "sell patterns")
		}
	}

	if lv := tech.Levels; lv.OK() {
		switch lv.Signal {
		case levels.RegimeNearSupport:
			c.add(10, "bouncing off support")
		case levels.RegimeNearResistance:
			c.add(-10, "pressing into resistance")
		case levels.RegimeUptrend:
			c.add(5, "uptrend structure")
		case levels.RegimeDowntrend:
			c.add(-5, "downtrend structure")
		}
	}

	if fb := tech.Fibonacci; fb.OK() {
		switch fb.Signal {
		case fibonacci.SignalSupportStrong:
			c.add(8, "golden retracement support")
		case fibonacci.SignalSupport:
			c.add(5, "retracement support")
		case fibonacci.SignalResistance, fibonacci.SignalResistanceStrong:
			c.add(-5, "retracement resistance")
		}
	}
	return c
}

func contextScore(ctx scorer.Context) Component {
	c := Component{Details: []string{}}
	for _, r := range ctx.All() {
		if r.Score != 0 {
			c.add(r.Score, "%s %s", r.Name, strings.ToLower(r.Signal))
		}
	}
	return c
}

func styleVotes(tech engine.Technical, ctx scorer.Context, ad adaptive.Result) []domain.Style {
	votes := []domain.Style{ctx.Psychology.Style, ctx.Volatility.Style, ad.Style}
	if tech.TrinityComplete() {
		votes = append(votes, domain.StyleSwing, domain.StyleSwing)
	}
	if lh := tech.Inflection.LongHorizon; tech.Inflection.OK() && lh.Available && lh.Above {
		votes = append(votes, domain.StyleLongTerm)
	}
	switch {
	case ctx.NetFlow.Buying():
		votes = append(votes, domain.StyleSwing)
	case ctx.NetFlow.Selling():
		votes = append(votes, domain.StyleScalp)
	}
	switch {
	case ctx.Index.Up():
		votes = append(votes, domain.StyleSwing)
	case ctx.Index.Down():
		votes = append(votes, domain.StyleScalp)
	}
	return votes
}

func message(d Decision) string {
	switch d.Action {
	case domain.ActionStrongBuy, domain.ActionBuy:
		return fmt.Sprintf("buy: %s trade over %s, confidence %s", d.Style, d.HoldingPeriod, d.Confidence)
	case domain.ActionWeakBuy:
		return fmt.Sprintf("weak buy: %s trade over %s, confidence %s", d.Style, d.HoldingPeriod, d.Confidence)
	case domain.ActionHold:
		return "hold: no entry, confidence " + d.Confidence
	case domain.ActionWeakSell:
		return "weak sell: review the holding, confidence " + d.Confidence
	default:
		return "sell: exit the holding, confidence " + d.Confidence
	}
}
