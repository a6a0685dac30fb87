package cache

import (
	"strconv"
	"strings"

	"event-feed/internal/domain"
)

// ComputeKey builds a deterministic cache key from a prefix and the values of
// the query-defining parameters, in the order the caller passes them. Every
// part must be a string or a number; anything else is rejected with an
// InvalidKeyComponentError before any network call is made.
func ComputeKey(prefix string, parts ...interface{}) (string, error) {
	var b strings.Builder
	b.WriteString("__")
	b.WriteString(prefix)
	b.WriteString("__")
	for i, part := range parts {
		s, err := keyComponent(part)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func keyComponent(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		return "", domain.ErrInvalidKeyComponent("cache key component must be a string or number, got %T", v)
	}
}
