package codes

import (
	"slices"
	"strings"
)

// renames align BOA segmentation names with canonical keys before resolution
var renames = map[string]string{
	"heart_myocardium": "myocardium",
}

// tokenAliases replace single tokens of a canonical key with the BOA spelling
var tokenAliases = map[string]string{
	"vertebra": "vertebrae",
}

// Rename applies the vocabulary renames to a name
func Rename(name string) string {
	if r, ok := renames[name]; ok {
		return r
	}
	return name
}

// Laterality returns "left" or "right" when the key mentions one, left taking precedence
func Laterality(key string) string {
	switch {
	case strings.Contains(key, "left"):
		return "left"
	case strings.Contains(key, "right"):
		return "right"
	}
	return ""
}

// Candidates returns the BOA segmentation names probed for a canonical key, in order.
//
// Without laterality there is exactly one candidate, the underscore join of the key's tokens.
// With laterality the side token is inserted in front of each token in turn, innermost first,
// and the trailing position comes last as the fallback:
//
//	gluteus-maximus-left -> left_gluteus_maximus, gluteus_left_maximus, gluteus_maximus_left
func Candidates(key string) []string {
	key = Rename(key)
	var tokens []string
	for _, t := range strings.Split(key, "-") {
		if t == "left" || t == "right" {
			continue
		}
		if a, ok := tokenAliases[t]; ok {
			t = a
		}
		tokens = append(tokens, t)
	}

	side := Laterality(key)
	if side == "" {
		return []string{strings.Join(tokens, "_")}
	}
	out := make([]string, 0, len(tokens)+1)
	for i := range tokens {
		probe := slices.Concat(tokens[:i], []string{side}, tokens[i:])
		out = append(out, strings.Join(probe, "_"))
	}
	return append(out, strings.Join(append(slices.Clone(tokens), side), "_"))
}

// ResolveName returns the first candidate for key accepted by has
func ResolveName(key string, has func(string) bool) (string, bool) {
	for _, c := range Candidates(key) {
		if has(c) {
			return c, true
		}
	}
	return "", false
}

// NameMapping resolves every canonical key against the BOA records. The result is keyed by
// canonical key; keys without a matching record are left out.
func NameMapping[V any](keys []string, records map[string]V) map[string]V {
	renamed := make(map[string]V, len(records))
	for k, v := range records {
		if Rename(k) != k {
			renamed[Rename(k)] = v
		}
	}
	// a record already spelled canonically wins over a renamed alias
	for k, v := range records {
		if Rename(k) == k {
			renamed[k] = v
		}
	}
	has := func(name string) bool {
		_, ok := renamed[name]
		return ok
	}

	out := make(map[string]V)
	for _, k := range keys {
		name, ok := ResolveName(k, has)
		if !ok {
			continue
		}
		out[Rename(k)] = renamed[name]
	}
	return out
}
