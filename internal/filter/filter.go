package filter

import (
	"strings"

	"github.com/quantfeed/signal-scout/internal/config"
)

// Verdict is the result of classifying a message.
type Verdict int

const (
	// Rejected means the message is noise and must not reach extraction.
	Rejected Verdict = iota
	// Candidate means the message is eligible for signal extraction.
	Candidate
)

func (v Verdict) String() string {
	if v == Candidate {
		return "candidate"
	}
	return "rejected"
}

// Filter classifies raw message text as candidate or noise. It is pure and
// deterministic: no side effects, no external calls. This is the cheapest
// point to discard noise before an inference call is paid for.
type Filter struct {
	required    []string
	excluded    []string
	instruments []string
	matchPairs  bool
}

// New builds a Filter from the configured keyword and instrument lists.
// All matching is case-insensitive.
func New(cfg config.FilterConfig) *Filter {
	return &Filter{
		required:    lowerAll(cfg.RequiredKeywords),
		excluded:    lowerAll(cfg.ExcludedKeywords),
		instruments: upperAll(cfg.MonitoredInstruments),
		matchPairs:  cfg.MatchInstruments,
	}
}

// Classify returns Candidate iff the text contains at least one required
// keyword, no excluded keyword, and (when instrument matching is enabled)
// at least one monitored instrument token.
func (f *Filter) Classify(text string) Verdict {
	if f.Excluded(text) {
		return Rejected
	}

	lower := strings.ToLower(text)

	hasRequired := false
	for _, kw := range f.required {
		if strings.Contains(lower, kw) {
			hasRequired = true
			break
		}
	}
	if !hasRequired {
		return Rejected
	}

	if f.matchPairs && !f.containsInstrument(strings.ToUpper(text)) {
		return Rejected
	}

	return Candidate
}

// Excluded reports whether the text contains any excluded keyword. Callers
// that admit keyword-less messages (for example chart-only posts) still use
// this as a veto.
func (f *Filter) Excluded(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range f.excluded {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// containsInstrument checks for a monitored instrument in any of the common
// notations: EURUSD, EUR/USD, EUR-USD, EUR USD.
func (f *Filter) containsInstrument(upper string) bool {
	for _, inst := range f.instruments {
		if strings.Contains(upper, inst) {
			return true
		}
		if len(inst) == 6 {
			base, quote := inst[:3], inst[3:]
			for _, sep := range []string{"/", "-", " "} {
				if strings.Contains(upper, base+sep+quote) {
					return true
				}
			}
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToUpper(s))
	}
	return out
}
