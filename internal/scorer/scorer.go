// Package scorer holds the six market-context scorers. Each one reads the
// series independently and returns a signed integer score with a label, an
// optional recommended style and a list of reasons.
package scorer

import (
	"fmt"

	"signalfuse/internal/domain"
)

const (
	NameTrend      = "trend"
	NamePsychology = "psychology"
	NameNetFlow    = "netflow"
	NameVolatility = "volatility"
	NameDisclosure = "disclosure"
	NameIndex      = "index"
)

// Result is the contract shared by every scorer.
type Result struct {
	Name    string        `json:"name"`
	Status  domain.Status `json:"status"`
	Signal  string        `json:"signal"`
	Score   int           `json:"score"`
	Label   string        `json:"label"`
	Style   domain.Style  `json:"style,omitempty"`
	Reasons []string      `json:"reasons"`
}

func (r Result) OK() bool { return r.Status == domain.StatusOK }

func (r *Result) add(points int, format string, args ...any) {
	r.Score += points
	r.Reasons = append(r.Reasons, fmt.Sprintf(format, args...)+fmt.Sprintf(" (%+d)", points))
}

func (r *Result) note(format string, args ...any) {
	r.Reasons = append(r.Reasons, fmt.Sprintf(format, args...))
}

func newResult(name string) Result {
	return Result{Name: name, Status: domain.StatusOK, Reasons: []string{}}
}

func insufficient(name string, need, have int) Result {
	return Result{
		Name:    name,
		Status:  domain.StatusInsufficientData,
		Signal:  "INSUFFICIENT_DATA",
		Label:   "unknown",
		Reasons: []string{fmt.Sprintf("need %d bars, have %d", need, have)},
	}
}

// Failed is the neutral result recorded when a scorer panics or its inputs
// could not be loaded.
func Failed(name string, err error) Result {
	return Result{
		Name:    name,
		Status:  domain.StatusError,
		Signal:  "ERROR",
		Label:   "unknown",
		Reasons: []string{err.Error()},
	}
}

// Context collects the six scorer outputs for one instrument.
type Context struct {
	Trend      TrendResult      `json:"trend"`
	Psychology PsychologyResult `json:"psychology"`
	NetFlow    NetFlowResult    `json:"netflow"`
	Volatility VolatilityResult `json:"volatility"`
	Disclosure DisclosureResult `json:"disclosure"`
	Index      IndexResult      `json:"index"`
}

// All returns the shared headers in a fixed order.
func (c Context) All() []Result {
	return []Result{
		c.Trend.Result, c.Psychology.Result, c.NetFlow.Result,
		c.Volatility.Result, c.Disclosure.Result, c.Index.Result,
	}
}

// Sum adds the scores of every scorer. Failed and insufficient scorers carry
// zero.
func (c Context) Sum() int {
	total := 0
	for _, r := range c.All() {
		total += r.Score
	}
	return total
}

func pctReturn(closes []float64, back int) float64 {
	n := len(closes)
	if n < back || closes[n-back] == 0 {
		return 0
	}
	return (closes[n-1]/closes[n-back] - 1) * 100
}
