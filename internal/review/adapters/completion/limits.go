package completion

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelLimit is the token budget of a model.
type ModelLimit struct {
	Input  int `yaml:"input"`
	Output int `yaml:"output"`
}

// Limits maps a model name, or a model name prefix, to its budget.
type Limits map[string]ModelLimit

var fallbackLimit = ModelLimit{Input: 128000, Output: 4096}

// DefaultLimits returns the built-in budgets.
func DefaultLimits() Limits {
	return Limits{
		"claude-sonnet-4":   {Input: 200000, Output: 64000},
		"claude-opus-4":     {Input: 200000, Output: 32000},
		"claude-3-7-sonnet": {Input: 200000, Output: 64000},
		"claude-3-5-haiku":  {Input: 200000, Output: 8192},
		"gemini-2.5-pro":    {Input: 1048576, Output: 65536},
		"gemini-2.5-flash":  {Input: 1048576, Output: 65536},
		"gemini-2.0-flash":  {Input: 1048576, Output: 8192},
	}
}

// Lookup returns the budget for model: an exact match, else the longest
// matching prefix, else a conservative fallback.
func (l Limits) Lookup(model string) ModelLimit {
	if lim, ok := l[model]; ok {
		return lim
	}
	best, bestLen := fallbackLimit, 0
	for prefix, lim := range l {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, bestLen = lim, len(prefix)
		}
	}
	return best
}

// Merge returns a copy of l with overrides applied on top.
func (l Limits) Merge(overrides Limits) Limits {
	out := make(Limits, len(l)+len(overrides))
	for k, v := range l {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// LoadLimits reads a YAML file of the form
//
//	claude-sonnet-4:
//	  input: 200000
//	  output: 64000
func LoadLimits(path string) (Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model limits: %w", err)
	}
	var limits Limits
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return nil, fmt.Errorf("parsing model limits %s: %w", path, err)
	}
	for model, lim := range limits {
		if lim.Input <= 0 || lim.Output <= 0 {
			return nil, fmt.Errorf("model %q: input and output limits must be positive", model)
		}
	}
	return limits, nil
}
