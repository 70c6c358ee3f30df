package core

import (
	"encoding/json"
	"sort"
	"time"
)

// ComponentName identifies one scored evidence source.
type ComponentName string

const (
	ComponentDomain     ComponentName = "domain"
	ComponentAppStoreA  ComponentName = "appstore-a"
	ComponentAppStoreB  ComponentName = "appstore-b"
	ComponentSearchRank ComponentName = "searchrank"
)

// ComponentNames returns every component in canonical order.
func ComponentNames() []ComponentName {
	return []ComponentName{ComponentDomain, ComponentAppStoreA, ComponentAppStoreB, ComponentSearchRank}
}

// Valid reports whether the name is one of the four known components.
func (c ComponentName) Valid() bool {
	switch c {
	case ComponentDomain, ComponentAppStoreA, ComponentAppStoreB, ComponentSearchRank:
		return true
	default:
		return false
	}
}

// Availability represents the availability state for a domain check.
type Availability int

const (
	AvailabilityUnknown   Availability = 0
	AvailabilityAvailable Availability = 1
	AvailabilityTaken     Availability = 2
)

func (a Availability) String() string {
	switch a {
	case AvailabilityAvailable:
		return "available"
	case AvailabilityTaken:
		return "taken"
	default:
		return "unknown"
	}
}

// Provenance captures metadata about how a provider result was resolved.
type Provenance struct {
	RequestedAt    time.Time  `json:"requested_at"`
	ResolvedAt     time.Time  `json:"resolved_at"`
	Source         string     `json:"source"`
	FromCache      bool       `json:"from_cache"`
	CacheExpiresAt *time.Time `json:"cache_expires_at,omitempty"`
	ToolVersion    string     `json:"tool_version,omitempty"`
}

// DomainResult is the outcome of a .com availability lookup.
type DomainResult struct {
	Label         string       `json:"label"`
	Domain        string       `json:"domain"`
	Available     Availability `json:"available"`
	Authoritative bool         `json:"authoritative"`
	StatusCode    int          `json:"status_code,omitempty"`
	Registrar     string       `json:"registrar,omitempty"`
	Expiration    string       `json:"expiration,omitempty"`
	Note          string       `json:"note,omitempty"`
	Provenance    Provenance   `json:"provenance"`
}

// RankedHit is one candidate term with its provider position. Positions are 1-based;
// search hits carry the absolute rank reported by the engine.
type RankedHit struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// HitList is an ordered provider result.
type HitList struct {
	Hits       []RankedHit `json:"hits"`
	CheckURL   string      `json:"check_url,omitempty"`
	Provenance Provenance  `json:"provenance"`
}

// Texts returns the candidate strings in provider order.
func (h HitList) Texts() []string {
	out := make([]string, 0, len(h.Hits))
	for _, hit := range h.Hits {
		out = append(out, hit.Text)
	}
	return out
}

// LocaleSpec is one evaluation context.
type LocaleSpec struct {
	Name         string  `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Country      string  `json:"country" yaml:"country" mapstructure:"country"`
	HL           string  `json:"hl" yaml:"hl" mapstructure:"hl"`
	GL           string  `json:"gl" yaml:"gl" mapstructure:"gl"`
	LocationCode int     `json:"location_code" yaml:"location_code" mapstructure:"location_code"`
	LanguageCode string  `json:"language_code" yaml:"language_code" mapstructure:"language_code"`
	Weight       float64 `json:"weight" yaml:"weight" mapstructure:"weight"`
}

// DefaultLocaleWeight is the weight of a locale that does not set one.
const DefaultLocaleWeight = 1.0

// UnmarshalJSON decodes a locale, keeping DefaultLocaleWeight when weight is absent.
// An explicit zero is preserved.
func (l *LocaleSpec) UnmarshalJSON(data []byte) error {
	type plain LocaleSpec
	out := plain{Weight: DefaultLocaleWeight}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*l = LocaleSpec(out)
	return nil
}

// DefaultLocale is the implicit locale used when a caller supplies none.
func DefaultLocale() LocaleSpec {
	return LocaleSpec{
		Name:         "us",
		Country:      "us",
		HL:           "en",
		GL:           "US",
		LocationCode: 2840,
		LanguageCode: "en",
		Weight:       DefaultLocaleWeight,
	}
}

// Label is a short human tag for the locale.
func (l LocaleSpec) Label() string {
	if l.Name != "" {
		return l.Name
	}
	return l.HL + "-" + l.GL
}

// MatchStats summarizes how a candidate list matches a query.
type MatchStats struct {
	MaxScore  int  `json:"max_score"`
	N95       int  `json:"n_95"`
	N90       int  `json:"n_90"`
	N80       int  `json:"n_80"`
	TopHitPos *int `json:"top_hit_pos,omitempty"`
}

// ComponentScore is one component's bounded score with explanation payload.
type ComponentScore struct {
	Name    ComponentName `json:"name"`
	Score   int           `json:"score"`
	Details Details       `json:"details,omitempty"`
}

// Warning returns the failure message attached by the neutral-failure policy.
func (c ComponentScore) Warning() string {
	if v, ok := c.Details["warning"]; ok {
		return v.String()
	}
	return ""
}

// LocaleReport holds the component scores computed for one locale.
type LocaleReport struct {
	Locale     LocaleSpec                       `json:"locale"`
	Components map[ComponentName]ComponentScore `json:"components"`
	Features   map[ComponentName]MatchStats     `json:"features"`
	CheckURL   string                           `json:"check_url,omitempty"`
}

// Grade is the discrete uniqueness label.
type Grade string

const (
	GradeDistinct     Grade = "Distinct"
	GradeLikelyUnique Grade = "Likely-Unique"
	GradeBorderline   Grade = "Borderline"
	GradeColliding    Grade = "Colliding"
)

// UniquenessReport is the terminal output of one evaluation.
type UniquenessReport struct {
	Title        string                `json:"title"`
	OverallScore int                   `json:"overall_score"`
	Grade        Grade                 `json:"grade"`
	Components   map[ComponentName]int `json:"components"`
	Locales      []LocaleReport        `json:"locales"`
	Explanations []string              `json:"explanations"`
	Engine       string                `json:"engine"`
	Aggregation  AggregationMode       `json:"aggregation"`
	EvaluatedAt  time.Time             `json:"evaluated_at"`
}

// NewUniquenessReport builds a report whose overall score is the sum of components.
func NewUniquenessReport(title string, components map[ComponentName]int, locales []LocaleReport) *UniquenessReport {
	copied := make(map[ComponentName]int, len(components))
	total := 0
	for name, score := range components {
		copied[name] = score
		total += score
	}
	return &UniquenessReport{
		Title:        title,
		OverallScore: total,
		Components:   copied,
		Locales:      locales,
	}
}

// SortedComponents returns component names present in the report in canonical order,
// followed by any unknown names sorted lexically.
func (r *UniquenessReport) SortedComponents() []ComponentName {
	if r == nil {
		return nil
	}
	out := make([]ComponentName, 0, len(r.Components))
	seen := make(map[ComponentName]bool, len(r.Components))
	for _, name := range ComponentNames() {
		if _, ok := r.Components[name]; ok {
			out = append(out, name)
			seen[name] = true
		}
	}
	var extra []ComponentName
	for name := range r.Components {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
