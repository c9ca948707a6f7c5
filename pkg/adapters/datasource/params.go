package datasource

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

// Params are connection parameters as supplied by callers, config files or
// decoded JSON. Values are loosely typed: numbers may arrive as float64 or int,
// lists as []any, []string or a comma-separated string.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Missing returns the required keys that are absent, nil or empty strings.
func (p Params) Missing(required []string) []string {
	var missing []string
	for _, key := range required {
		v, ok := p[key]
		if !ok || v == nil {
			missing = append(missing, key)
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// String returns a string parameter, or def when absent.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", typeError(key, "a string", v)
	}
}

// Int returns an integer parameter, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint16:
		return int(n), nil
	case float64: // JSON numbers are float64
		if n != float64(int(n)) {
			return 0, typeError(key, "an integer", v)
		}
		return int(n), nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, typeError(key, "an integer", v)
		}
		return parsed, nil
	default:
		return 0, typeError(key, "an integer", v)
	}
}

// Bool returns a boolean parameter, or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, typeError(key, "a boolean", v)
		}
		return parsed, nil
	default:
		return false, typeError(key, "a boolean", v)
	}
}

// Strings returns a list parameter, or nil when absent.
func (p Params) Strings(key string) ([]string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, isString := item.(string)
			if !isString {
				return nil, typeError(key, "a list of strings", v)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(list, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return nil, typeError(key, "a list of strings", v)
	}
}

// Duration returns a duration parameter, or def when absent.
// Strings use time.ParseDuration syntax; bare numbers are seconds.
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(d))
		if err != nil {
			return 0, typeError(key, "a duration", v)
		}
		return parsed, nil
	case int:
		return time.Duration(d) * time.Second, nil
	case float64:
		return time.Duration(d * float64(time.Second)), nil
	default:
		return 0, typeError(key, "a duration", v)
	}
}

func typeError(key, want string, got any) error {
	return apperrors.InvalidParameter("", fmt.Sprintf("parameter %q must be %s, got %T", key, want, got))
}
