package raymarch

import (
	"fmt"
	"math"
	"strings"
)

// Policy selects how samples along a ray are aggregated.
type Policy int

const (
	// Average divides the sum of samples by their count. With no samples the
	// result is NaN.
	Average Policy = iota
	// Minimum keeps the smallest sample; +Inf with no samples.
	Minimum
	// Maximum keeps the largest sample; -Inf with no samples.
	Maximum
)

var policyNames = map[Policy]string{
	Average: "average",
	Minimum: "minimum",
	Maximum: "maximum",
}

// Initial returns the accumulator value before any sample is combined.
func (p Policy) Initial() float64 {
	switch p {
	case Minimum:
		return math.Inf(1)
	case Maximum:
		return math.Inf(-1)
	default:
		return 0
	}
}

// Combine folds sample v into the accumulator.
func (p Policy) Combine(acc, v float64) float64 {
	switch p {
	case Minimum:
		return math.Min(acc, v)
	case Maximum:
		return math.Max(acc, v)
	default:
		return acc + v
	}
}

// Finalize collapses the accumulator once iteration is done.
func (p Policy) Finalize(acc float64, samples int) float64 {
	if p == Average {
		return acc / float64(samples)
	}
	return acc
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy resolves a policy by name, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown accumulation policy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if _, ok := policyNames[p]; !ok {
		return nil, fmt.Errorf("unknown accumulation policy %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
