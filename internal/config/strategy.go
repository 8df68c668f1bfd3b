package config

import "fmt"

// Strategy identifies how per-symbol durations are derived.
type Strategy string

const (
	StrategyNone      Strategy = "none"
	StrategyAttention Strategy = "attention"
	StrategyTextGrid  Strategy = "textgrid"
	StrategyUnits     Strategy = "units"
)

// DurationStrategy resolves the extract section's selection flags into a
// single tagged value, decided once at startup. Selecting more than one
// strategy is a conflict.
func (c Config) DurationStrategy() (Strategy, error) {
	var selected []Strategy

	if c.Extract.DursFromAttention {
		selected = append(selected, StrategyAttention)
	}
	if c.Extract.DursFromTextGrid {
		selected = append(selected, StrategyTextGrid)
	}
	if c.Extract.DursFromUnits {
		selected = append(selected, StrategyUnits)
	}

	switch len(selected) {
	case 0:
		return StrategyNone, nil
	case 1:
		return selected[0], nil
	default:
		return StrategyNone, fmt.Errorf("%w: duration strategies %v are mutually exclusive", ErrConflict, selected)
	}
}

// NeedsModel reports whether the run must load the acoustic model.
func (c Config) NeedsModel() bool {
	return c.Extract.MelsTeacher || c.Extract.Attentions || c.Extract.DursFromAttention
}
