package config

import (
	"os"
	"regexp"
)

// refPattern matches ${NAME} and ${NAME:-fallback}.
var refPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Lookup resolves a variable name; ok is false when it is unset.
type Lookup func(name string) (value string, ok bool)

// Env looks names up in the process environment first, then in each extra
// map in order.
func Env(extra ...map[string]string) Lookup {
	return func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		for _, m := range extra {
			if v, ok := m[name]; ok {
				return v, true
			}
		}
		return "", false
	}
}

// Expand replaces ${NAME} with its value (empty when unset) and
// ${NAME:-fallback} with its value or the fallback.
func Expand(input []byte, lookup Lookup) []byte {
	return refPattern.ReplaceAllFunc(input, func(ref []byte) []byte {
		m := refPattern.FindSubmatch(ref)
		if v, ok := lookup(string(m[1])); ok {
			return []byte(v)
		}
		return m[2]
	})
}
