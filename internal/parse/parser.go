// Package parse recovers structured records from untrusted generator output.
package parse

import "log/slog"

// Strategy is one recovery attempt. It must not mutate shared state.
type Strategy struct {
	Name string
	Func func(raw string) ([]Record, bool)
}

// Result is the outcome of Parse. An empty Records slice means nothing
// could be recovered. Strategy is advisory telemetry.
type Result struct {
	Records  []Record
	Strategy string
}

// Empty reports total parse failure.
func (r Result) Empty() bool {
	return len(r.Records) == 0
}

// DefaultStrategies is the cascade tried by Parse, in order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "strip_preamble", Func: StripPreamble},
		{Name: "fenced_block", Func: FencedBlock},
		{Name: "wrapped_object", Func: WrappedObject},
		{Name: "bracket_literal", Func: BracketLiteral},
		{Name: "normalized", Func: Normalized},
		{Name: "fragments", Func: Fragments},
	}
}

// Parser runs a strategy cascade; the first strategy yielding records wins.
type Parser struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewParser creates a parser over strategies (DefaultStrategies when empty).
func NewParser(logger *slog.Logger, strategies ...Strategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{strategies: strategies, logger: logger}
}

// Parse never fails; see Result.
func (p *Parser) Parse(raw string) Result {
	for _, s := range p.strategies {
		recs, ok := run(s, raw)
		if ok && len(recs) > 0 {
			p.logger.Debug("parsed generator output", "strategy", s.Name, "records", len(recs))
			return Result{Records: recs, Strategy: s.Name}
		}
	}
	p.logger.Debug("no strategy recovered records", "bytes", len(raw))
	return Result{}
}

// Parse runs the default cascade.
func Parse(raw string) Result {
	return NewParser(nil).Parse(raw)
}

func run(s Strategy, raw string) (recs []Record, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			recs, ok = nil, false
		}
	}()
	return s.Func(raw)
}
