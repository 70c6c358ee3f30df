package core

import (
	"fmt"
	"math"
	"strings"
)

// Matcher engine names accepted in configuration.
const (
	EngineAuto    = "auto"
	EngineFast    = "fast"
	EngineBuiltin = "builtin"
)

// CanonicalEngine maps an engine name (including the primary/fallback aliases) to its
// canonical form.
func CanonicalEngine(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EngineAuto:
		return EngineAuto, true
	case EngineFast, "primary":
		return EngineFast, true
	case EngineBuiltin, "fallback":
		return EngineBuiltin, true
	default:
		return "", false
	}
}

// AggregationMode selects how per-locale component scores are combined.
type AggregationMode string

const (
	AggregationMin      AggregationMode = "min"
	AggregationWeighted AggregationMode = "weighted"
)

// ParseAggregationMode accepts the mode names used in config and flags.
func ParseAggregationMode(value string) (AggregationMode, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "min", "minimum":
		return AggregationMin, true
	case "weighted", "weighted-average", "avg":
		return AggregationWeighted, true
	default:
		return "", false
	}
}

// Thresholds are the grade boundaries.
type Thresholds struct {
	Distinct int `json:"distinct" yaml:"distinct" mapstructure:"distinct"`
	Likely   int `json:"likely" yaml:"likely" mapstructure:"likely"`
	Border   int `json:"border" yaml:"border" mapstructure:"border"`
}

// BandPenalties is the app-store penalty table. Each matching candidate costs the
// penalty of the strictest band it reaches; Top3 applies once when the best match
// sits in the first three positions.
type BandPenalties struct {
	Band95 int `json:"penalty_95" yaml:"penalty_95" mapstructure:"penalty_95"`
	Band90 int `json:"penalty_90" yaml:"penalty_90" mapstructure:"penalty_90"`
	Band80 int `json:"penalty_80" yaml:"penalty_80" mapstructure:"penalty_80"`
	Top3   int `json:"penalty_top3" yaml:"penalty_top3" mapstructure:"penalty_top3"`
}

// SearchPenalties is the search-rank penalty table. Rank penalties use the best
// matching absolute rank; band penalties are per candidate with a cap per band.
type SearchPenalties struct {
	Rank3      int `json:"rank_top3" yaml:"rank_top3" mapstructure:"rank_top3"`
	Rank10     int `json:"rank_top10" yaml:"rank_top10" mapstructure:"rank_top10"`
	RankBeyond int `json:"rank_beyond" yaml:"rank_beyond" mapstructure:"rank_beyond"`
	Band95Each int `json:"penalty_95" yaml:"penalty_95" mapstructure:"penalty_95"`
	Band95Cap  int `json:"cap_95" yaml:"cap_95" mapstructure:"cap_95"`
	Band90Each int `json:"penalty_90" yaml:"penalty_90" mapstructure:"penalty_90"`
	Band90Cap  int `json:"cap_90" yaml:"cap_90" mapstructure:"cap_90"`
	Band80Each int `json:"penalty_80" yaml:"penalty_80" mapstructure:"penalty_80"`
	Band80Cap  int `json:"cap_80" yaml:"cap_80" mapstructure:"cap_80"`
}

// Penalties groups the tunable policy tables.
type Penalties struct {
	AppStoreA BandPenalties   `json:"appstore_a" yaml:"appstore_a" mapstructure:"appstore_a"`
	AppStoreB BandPenalties   `json:"appstore_b" yaml:"appstore_b" mapstructure:"appstore_b"`
	Search    SearchPenalties `json:"searchrank" yaml:"searchrank" mapstructure:"searchrank"`
}

// DefaultPenalties returns the stock policy table.
func DefaultPenalties() Penalties {
	return Penalties{
		AppStoreA: BandPenalties{Band95: 8, Band90: 4, Band80: 2, Top3: 3},
		AppStoreB: BandPenalties{Band95: 6, Band90: 3, Band80: 1, Top3: 2},
		Search: SearchPenalties{
			Rank3: 20, Rank10: 10, RankBeyond: 4,
			Band95Each: 2, Band95Cap: 10,
			Band90Each: 1, Band90Cap: 5,
		},
	}
}

// UniquenessConfig drives one evaluation run.
type UniquenessConfig struct {
	MatcherEngine      string                `json:"matcher_engine" yaml:"matcher_engine" mapstructure:"matcher_engine"`
	Weights            map[ComponentName]int `json:"weights" yaml:"weights" mapstructure:"weights"`
	Thresholds         Thresholds            `json:"thresholds" yaml:"thresholds" mapstructure:"thresholds"`
	Aggregation        AggregationMode       `json:"aggregation" yaml:"aggregation" mapstructure:"aggregation"`
	Penalties          Penalties             `json:"penalties" yaml:"penalties" mapstructure:"penalties"`
	DomainTakenRatio   float64               `json:"domain_taken_ratio" yaml:"domain_taken_ratio" mapstructure:"domain_taken_ratio"`
	NearMatchThreshold int                   `json:"near_match_threshold" yaml:"near_match_threshold" mapstructure:"near_match_threshold"`
}

// DefaultUniquenessConfig returns the built-in scoring configuration.
func DefaultUniquenessConfig() UniquenessConfig {
	return UniquenessConfig{
		MatcherEngine: EngineAuto,
		Weights: map[ComponentName]int{
			ComponentDomain:     25,
			ComponentAppStoreA:  25,
			ComponentAppStoreB:  20,
			ComponentSearchRank: 30,
		},
		Thresholds:         Thresholds{Distinct: 80, Likely: 60, Border: 40},
		Aggregation:        AggregationMin,
		Penalties:          DefaultPenalties(),
		DomainTakenRatio:   0.6,
		NearMatchThreshold: 90,
	}
}

// Weight returns the configured weight for a component.
func (c UniquenessConfig) Weight(name ComponentName) int {
	return c.Weights[name]
}

// TotalWeight sums all component weights.
func (c UniquenessConfig) TotalWeight() int {
	total := 0
	for _, name := range ComponentNames() {
		total += c.Weights[name]
	}
	return total
}

// Clone returns a deep copy safe to mutate.
func (c UniquenessConfig) Clone() UniquenessConfig {
	out := c
	out.Weights = make(map[ComponentName]int, len(c.Weights))
	for k, v := range c.Weights {
		out.Weights[k] = v
	}
	return out
}

// Validate checks the configuration and returns a *ConfigError describing the first
// problem found.
func (c UniquenessConfig) Validate() error {
	if _, ok := CanonicalEngine(c.MatcherEngine); !ok {
		return &ConfigError{Field: "matcher_engine", Reason: fmt.Sprintf("unknown engine %q", c.MatcherEngine)}
	}
	if _, ok := ParseAggregationMode(string(c.Aggregation)); !ok {
		return &ConfigError{Field: "aggregation", Reason: fmt.Sprintf("unknown mode %q", c.Aggregation)}
	}
	for _, name := range ComponentNames() {
		weight, ok := c.Weights[name]
		if !ok {
			return &ConfigError{Field: "weights." + string(name), Reason: "missing"}
		}
		if weight < 0 {
			return &ConfigError{Field: "weights." + string(name), Reason: "must be >= 0"}
		}
	}
	for name := range c.Weights {
		if !name.Valid() {
			return &ConfigError{Field: "weights." + string(name), Reason: "unknown component"}
		}
	}

	t := c.Thresholds
	for field, value := range map[string]int{"distinct": t.Distinct, "likely": t.Likely, "border": t.Border} {
		if value < 0 || value > 100 {
			return &ConfigError{Field: "thresholds." + field, Reason: "must be within 0-100"}
		}
	}
	if t.Distinct < t.Likely || t.Likely < t.Border {
		return &ConfigError{Field: "thresholds", Reason: "must satisfy distinct >= likely >= border"}
	}

	if c.NearMatchThreshold < 0 || c.NearMatchThreshold > 100 {
		return &ConfigError{Field: "near_match_threshold", Reason: "must be within 0-100"}
	}
	if math.IsNaN(c.DomainTakenRatio) || c.DomainTakenRatio < 0 || c.DomainTakenRatio > 1 {
		return &ConfigError{Field: "domain_taken_ratio", Reason: "must be within 0-1"}
	}

	if err := validateBands("penalties.appstore_a", c.Penalties.AppStoreA); err != nil {
		return err
	}
	if err := validateBands("penalties.appstore_b", c.Penalties.AppStoreB); err != nil {
		return err
	}
	s := c.Penalties.Search
	for field, value := range map[string]int{
		"rank_top3": s.Rank3, "rank_top10": s.Rank10, "rank_beyond": s.RankBeyond,
		"penalty_95": s.Band95Each, "penalty_90": s.Band90Each, "penalty_80": s.Band80Each,
		"cap_95": s.Band95Cap, "cap_90": s.Band90Cap, "cap_80": s.Band80Cap,
	} {
		if value < 0 {
			return &ConfigError{Field: "penalties.searchrank." + field, Reason: "must be >= 0"}
		}
	}
	if s.Rank3 < s.Rank10 || s.Rank10 < s.RankBeyond {
		return &ConfigError{Field: "penalties.searchrank", Reason: "rank penalties must not increase with rank"}
	}
	if s.Band95Each < s.Band90Each || s.Band90Each < s.Band80Each {
		return &ConfigError{Field: "penalties.searchrank", Reason: "band penalties must not increase for looser bands"}
	}
	return nil
}

func validateBands(field string, p BandPenalties) error {
	if p.Band95 < 0 || p.Band90 < 0 || p.Band80 < 0 || p.Top3 < 0 {
		return &ConfigError{Field: field, Reason: "penalties must be >= 0"}
	}
	if p.Band95 < p.Band90 || p.Band90 < p.Band80 {
		return &ConfigError{Field: field, Reason: "band penalties must not increase for looser bands"}
	}
	return nil
}
