// Package translate rewrites every string leaf of a nested structure into
// a target language while keeping the structure itself, non-string values
// and excluded keys untouched. Leaves are collected with their structural
// path, shipped to the model in token-bounded batches and written back by
// path, so translation is best effort per leaf and the output is always
// shape-identical to the input.
package translate

import (
	"sort"
	"strconv"
	"strings"
)

// pathSep joins path elements into a lookup key. A unit separator keeps
// user keys containing dots unambiguous.
const pathSep = "\x1f"

// Unit is one translatable string leaf with the path that addresses it.
type Unit struct {
	Path []string
	Text string
}

// Key returns the unit's path as a single lookup key.
func (u Unit) Key() string {
	return strings.Join(u.Path, pathSep)
}

// Collect walks v depth first and returns every non-empty string leaf that
// is not under an excluded key, paired with its path. Map keys are visited
// in sorted order so the result is deterministic.
func Collect(v any, excluded map[string]bool) []Unit {
	var units []Unit
	collect(v, nil, excluded, &units)
	return units
}

func collect(v any, path []string, excluded map[string]bool, out *[]Unit) {
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) == "" {
			return
		}
		p := make([]string, len(path))
		copy(p, path)
		*out = append(*out, Unit{Path: p, Text: val})
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if excluded[k] {
				continue
			}
			collect(val[k], append(path, k), excluded, out)
		}
	case []any:
		for i, item := range val {
			collect(item, append(path, strconv.Itoa(i)), excluded, out)
		}
	}
}

// Reconstruct rebuilds v with every leaf whose path appears in
// translations replaced by its translated text. Everything else, including
// excluded keys and non-string values, is copied unchanged. The result is
// shape-identical to the input.
func Reconstruct(v any, translations map[string]string, excluded map[string]bool) any {
	return reconstruct(v, nil, translations, excluded)
}

func reconstruct(v any, path []string, translations map[string]string, excluded map[string]bool) any {
	switch val := v.(type) {
	case string:
		if t, ok := translations[strings.Join(path, pathSep)]; ok {
			return t
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if excluded[k] {
				out[k] = item
				continue
			}
			out[k] = reconstruct(item, append(path, k), translations, excluded)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = reconstruct(item, append(path, strconv.Itoa(i)), translations, excluded)
		}
		return out
	default:
		return val
	}
}
