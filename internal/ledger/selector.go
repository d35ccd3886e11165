package ledger

import (
	"fmt"
	"strings"
)

// StrategyName identifies a transfer strategy in configuration.
type StrategyName string

const (
	Atomic      StrategyName = "ATOMIC"
	Pessimistic StrategyName = "PESSIMISTIC"
	Optimistic  StrategyName = "OPTIMISTIC"
	Isolation   StrategyName = "ISOLATION"
)

// ParseStrategyName normalises s and rejects empty or unknown names. There is no default.
func ParseStrategyName(s string) (StrategyName, error) {
	name := StrategyName(strings.ToUpper(strings.TrimSpace(s)))
	switch name {
	case Atomic, Pessimistic, Optimistic, Isolation:
		return name, nil
	case "":
		return "", fmt.Errorf("%w: transfer strategy is not set", ErrConfiguration)
	default:
		return "", fmt.Errorf("%w: unknown transfer strategy %q", ErrConfiguration, s)
	}
}

// StrategySet holds one instance of every strategy.
type StrategySet struct {
	Atomic      Strategy
	Pessimistic Strategy
	Optimistic  Strategy
	Isolation   Strategy
}

func NewStrategySet(d Deps) StrategySet {
	return StrategySet{
		Atomic:      NewAtomicStrategy(d),
		Pessimistic: NewPessimisticStrategy(d),
		Optimistic:  NewOptimisticStrategy(d),
		Isolation:   NewIsolationStrategy(d),
	}
}

// Select resolves the configured name to a strategy.
func (set StrategySet) Select(name string) (StrategyName, Strategy, error) {
	parsed, err := ParseStrategyName(name)
	if err != nil {
		return "", nil, err
	}

	var strategy Strategy
	switch parsed {
	case Atomic:
		strategy = set.Atomic
	case Pessimistic:
		strategy = set.Pessimistic
	case Optimistic:
		strategy = set.Optimistic
	case Isolation:
		strategy = set.Isolation
	}
	if strategy == nil {
		return "", nil, fmt.Errorf("%w: strategy %s is not configured", ErrConfiguration, parsed)
	}
	return parsed, strategy, nil
}
