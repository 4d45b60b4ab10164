package envelope

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Family groups operations that share one response normalizer.
type Family string

const (
	Board    Family = "board"
	Git      Family = "git"
	Wiki     Family = "wiki"
	WorkItem Family = "workItem"
	Pipeline Family = "pipeline"
	Identity Family = "identity"
	Comment  Family = "comment"
)

// Policy decides what a valueless envelope normalizes to.
type Policy int

const (
	// Uniform wraps a valueless envelope as a single element for every family.
	Uniform Policy = iota
	// Legacy returns an empty sequence for the workItem and pipeline families.
	Legacy
)

func (p Policy) String() string {
	if p == Legacy {
		return "legacy"
	}
	return "uniform"
}

// ParsePolicy accepts "uniform" (or empty) and "legacy".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uniform":
		return Uniform, nil
	case "legacy":
		return Legacy, nil
	default:
		return Uniform, fmt.Errorf("unknown normalize policy %q", s)
	}
}

// Normalizer converts envelopes into ordered result sequences.
type Normalizer struct {
	Policy Policy
}

// Values returns the `value` sequence as-is when present. Otherwise the whole
// envelope becomes a single element, unless the Legacy policy applies to f.
func (n Normalizer) Values(f Family, e Envelope) []gjson.Result {
	if v, ok := e.Value(); ok {
		if v.IsArray() {
			return v.Array()
		}
		if v.Type == gjson.Null {
			return n.fallback(f, e)
		}
		return []gjson.Result{v}
	}
	return n.fallback(f, e)
}

func (n Normalizer) fallback(f Family, e Envelope) []gjson.Result {
	if n.Policy == Legacy && (f == WorkItem || f == Pipeline) {
		return []gjson.Result{}
	}
	return []gjson.Result{e.res}
}

// Truncate keeps the first min(n, len(list)) elements. n <= 0 means no limit.
func Truncate[T any](list []T, n int) []T {
	if n <= 0 || n >= len(list) {
		return list
	}
	return list[:n]
}
