package registry

import (
	"strconv"
	"strings"
)

// Options is the flat plugin option object. Unknown keys are ignored.
type Options map[string]any

// Enabled is true only when key holds the boolean true. Strings such as
// "true", numbers and absent keys all read as false.
func (o Options) Enabled(key string) bool {
	b, ok := o[key].(bool)
	return ok && b
}

// Merge returns a copy of o with every key of over applied on top.
func (o Options) Merge(over Options) Options {
	out := make(Options, len(o)+len(over))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// ParseAssignment parses a command-line `key=value` override. Values that
// look like booleans or numbers are typed, everything else stays a string,
// so `observerCache=true` enables the flag while `observerCache='true'`
// does not.
func ParseAssignment(s string) (string, any, bool) {
	key, val, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, false
	}
	val = strings.TrimSpace(val)
	if val == "true" || val == "false" {
		return key, val == "true", true
	}
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		return key, f, true
	}
	return key, strings.Trim(val, `'"`), true
}
