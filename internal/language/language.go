package language

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnknownLanguage is returned when a requested name is not in the language table.
var ErrUnknownLanguage = errors.New("unknown target language")

// Target is one language a run dubs into.
type Target struct {
	// Name is the table key, e.g. "Francais".
	Name string
	// Code is the BCP-47 code passed to speech synthesis, e.g. "fr-FR".
	Code string
}

// String renders "Name (code)".
func (t Target) String() string {
	return fmt.Sprintf("%s (%s)", t.Name, t.Code)
}

// Base returns the two-letter base language of the target.
func (t Target) Base() string {
	return ToISO2(t.Code)
}

// DisplayName returns the English name of the target language.
func (t Target) DisplayName() string {
	return DisplayName(t.Code)
}

// macrolanguage codes that x/text keeps distinct from their ISO 639-1 base.
var macro = map[string]string{
	"cmn": "zh",
	"yue": "zh",
	"arb": "ar",
}

// ToISO2 converts a BCP-47 code or bare language subtag to its two-letter base.
// Languages without an ISO 639-1 code keep their three-letter subtag.
// Unparseable input returns an empty string.
func ToISO2(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	prefix := strings.ToLower(strings.SplitN(strings.ReplaceAll(code, "_", "-"), "-", 2)[0])
	if mapped, ok := macro[prefix]; ok {
		return mapped
	}
	base, err := language.ParseBase(prefix)
	if err != nil {
		return ""
	}
	return base.String()
}

// DisplayName returns the English name for a code, or the code itself when
// x/text has no name for it.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown"
	}
	base := ToISO2(code)
	if base == "" {
		return code
	}
	tag, err := language.Parse(base)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// Validate reports whether code is a syntactically valid BCP-47 tag.
func Validate(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("language code is empty")
	}
	if ToISO2(code) == "" {
		return fmt.Errorf("language code %q has no recognizable base language", code)
	}
	return nil
}

// Targets converts a name to code table into targets sorted by name.
func Targets(table map[string]string) []Target {
	targets := make([]Target, 0, len(table))
	for name, code := range table {
		targets = append(targets, Target{Name: name, Code: code})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets
}

// Resolve selects targets by name, matching case-insensitively. An empty
// selection returns every entry in table. Duplicate names are collapsed.
func Resolve(table map[string]string, names []string) ([]Target, error) {
	if len(names) == 0 {
		return Targets(table), nil
	}
	index := make(map[string]Target, len(table))
	for name, code := range table {
		index[strings.ToLower(name)] = Target{Name: name, Code: code}
	}
	seen := make(map[string]struct{}, len(names))
	targets := make([]Target, 0, len(names))
	for _, raw := range names {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		target, ok := index[key]
		if !ok {
			target, ok = byCode(table, key)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, raw)
		}
		if _, dup := seen[target.Name]; dup {
			continue
		}
		seen[target.Name] = struct{}{}
		targets = append(targets, target)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no languages selected", ErrUnknownLanguage)
	}
	return targets, nil
}

func byCode(table map[string]string, code string) (Target, bool) {
	for name, c := range table {
		if strings.EqualFold(c, code) {
			return Target{Name: name, Code: c}, true
		}
	}
	return Target{}, false
}
