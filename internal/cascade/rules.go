package cascade

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"loom/internal/queue"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Condition gates a cascade rule on a numeric field of the source stage's
// result.
type Condition struct {
	Field string  `yaml:"field"`
	Above float64 `yaml:"above"`
}

// Evaluate reports whether the condition holds for the given stage result.
// A missing or non-numeric field fails the condition.
func (c Condition) Evaluate(result map[string]any) bool {
	value, ok := result[c.Field]
	if !ok {
		return false
	}
	switch v := value.(type) {
	case int:
		return float64(v) > c.Above
	case int64:
		return float64(v) > c.Above
	case float64:
		return v > c.Above
	default:
		return false
	}
}

// Rule describes one stage-to-stage cascade edge.
type Rule struct {
	Source       queue.WorkType `yaml:"source"`
	Next         queue.WorkType `yaml:"next"`
	Description  string         `yaml:"description"`
	Condition    Condition      `yaml:"condition"`
	DelaySeconds int            `yaml:"delay_seconds"`
}

// Delay returns how long the cascaded entry stays invisible to claims.
func (r Rule) Delay() time.Duration {
	return time.Duration(r.DelaySeconds) * time.Second
}

// RuleSet is the loaded cascade topology: at most one outgoing rule per
// source stage, plus the set of terminal stages.
type RuleSet struct {
	Rules    []Rule           `yaml:"rules"`
	Terminal []queue.WorkType `yaml:"terminal"`
}

// Lookup returns the rule whose source matches the given stage, if any.
func (rs *RuleSet) Lookup(stage queue.WorkType) (Rule, bool) {
	for _, rule := range rs.Rules {
		if rule.Source == stage {
			return rule, true
		}
	}
	return Rule{}, false
}

// IsTerminal reports whether the stage ends the pipeline.
func (rs *RuleSet) IsTerminal(stage queue.WorkType) bool {
	for _, terminal := range rs.Terminal {
		if terminal == stage {
			return true
		}
	}
	return false
}

// DefaultRules loads the embedded cascade topology.
func DefaultRules() (*RuleSet, error) {
	return ParseRules(defaultRulesYAML)
}

// ParseRules decodes a cascade topology from YAML and validates it.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("cascade: parse rules: %w", err)
	}
	for _, rule := range rs.Rules {
		if _, ok := queue.ParseWorkType(string(rule.Source)); !ok {
			return nil, fmt.Errorf("cascade: unknown rule source %q", rule.Source)
		}
		if _, ok := queue.ParseWorkType(string(rule.Next)); !ok {
			return nil, fmt.Errorf("cascade: unknown rule next %q", rule.Next)
		}
		if rule.Condition.Field == "" {
			return nil, fmt.Errorf("cascade: rule %s -> %s has no condition field", rule.Source, rule.Next)
		}
		if rule.DelaySeconds < 0 {
			return nil, fmt.Errorf("cascade: rule %s -> %s has negative delay", rule.Source, rule.Next)
		}
	}
	return &rs, nil
}
