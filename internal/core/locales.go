package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// LocalePreset is a named, ready-to-use locale.
type LocalePreset struct {
	Description string     `json:"description,omitempty"`
	Locale      LocaleSpec `json:"locale"`
}

// BuiltInLocales provides the locale presets bundled with brandlens.
var BuiltInLocales = []LocalePreset{
	{Description: "United States, English", Locale: DefaultLocale()},
	{Description: "United Kingdom, English", Locale: LocaleSpec{Name: "gb", Country: "gb", HL: "en", GL: "GB", LocationCode: 2826, LanguageCode: "en", Weight: 1}},
	{Description: "Canada, English", Locale: LocaleSpec{Name: "ca", Country: "ca", HL: "en", GL: "CA", LocationCode: 2124, LanguageCode: "en", Weight: 1}},
	{Description: "Australia, English", Locale: LocaleSpec{Name: "au", Country: "au", HL: "en", GL: "AU", LocationCode: 2036, LanguageCode: "en", Weight: 1}},
	{Description: "Germany, German", Locale: LocaleSpec{Name: "de", Country: "de", HL: "de", GL: "DE", LocationCode: 2276, LanguageCode: "de", Weight: 1}},
	{Description: "France, French", Locale: LocaleSpec{Name: "fr", Country: "fr", HL: "fr", GL: "FR", LocationCode: 2250, LanguageCode: "fr", Weight: 1}},
	{Description: "Japan, Japanese", Locale: LocaleSpec{Name: "jp", Country: "jp", HL: "ja", GL: "JP", LocationCode: 2392, LanguageCode: "ja", Weight: 1}},
	{Description: "Brazil, Portuguese", Locale: LocaleSpec{Name: "br", Country: "br", HL: "pt", GL: "BR", LocationCode: 2076, LanguageCode: "pt", Weight: 1}},
	{Description: "India, English", Locale: LocaleSpec{Name: "in", Country: "in", HL: "en", GL: "IN", LocationCode: 2356, LanguageCode: "en", Weight: 1}},
}

// FindLocalePreset looks up a built-in locale by name.
func FindLocalePreset(name string) (*LocaleSpec, bool) {
	needle := strings.TrimSpace(strings.ToLower(name))
	if needle == "" {
		return nil, false
	}

	for _, preset := range BuiltInLocales {
		if strings.EqualFold(preset.Locale.Name, needle) {
			copied := preset.Locale
			return &copied, true
		}
	}

	return nil, false
}

// ResolveLocales expands preset names, optionally looking in extra user-defined
// locales first. Unknown names yield a *ValidationError.
func ResolveLocales(names []string, custom map[string]LocaleSpec) ([]LocaleSpec, error) {
	out := make([]LocaleSpec, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(strings.ToLower(raw))
		if name == "" {
			continue
		}
		if spec, ok := custom[name]; ok {
			if spec.Name == "" {
				spec.Name = name
			}
			out = append(out, spec)
			continue
		}
		spec, ok := FindLocalePreset(name)
		if !ok {
			return nil, &ValidationError{Field: "locale", Reason: fmt.Sprintf("unknown locale %q (known: %s)", raw, strings.Join(LocaleNames(custom), ", "))}
		}
		out = append(out, *spec)
	}
	return out, nil
}

// LocaleNames lists preset and custom locale names.
func LocaleNames(custom map[string]LocaleSpec) []string {
	names := make([]string, 0, len(BuiltInLocales)+len(custom))
	for _, preset := range BuiltInLocales {
		names = append(names, preset.Locale.Name)
	}
	var extra []string
	for name := range custom {
		if _, ok := FindLocalePreset(name); !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// ValidateLocale checks a locale supplied by a caller.
func ValidateLocale(l LocaleSpec) error {
	if l.Weight < 0 || math.IsNaN(l.Weight) || math.IsInf(l.Weight, 0) {
		return &ValidationError{Field: "locale.weight", Reason: "must be a non-negative number"}
	}
	if strings.TrimSpace(l.Country) == "" && strings.TrimSpace(l.GL) == "" {
		return &ValidationError{Field: "locale", Reason: "country or gl is required"}
	}
	return nil
}
