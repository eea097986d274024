package engine

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/stratadb/strata/internal/entity"
)

// normalizeAttrs checks a state's attributes against the descriptor and
// coerces each value to the canonical Go representation of its kind:
// int64 for integers and type references, float64 for floats, time.Time for
// timestamps, []byte for blobs. JSON decoding hands the engine float64 for
// every number and strings for timestamps and blobs, so coercion here keeps
// predicate comparison and port storage uniform regardless of the caller.
//
// A nil attrs map passes untouched. An unknown attribute name or a value no
// coercion applies to is a VALIDATION error.
func normalizeAttrs(desc *entity.Descriptor, attrs map[string]any) (map[string]any, error) {
	if attrs == nil {
		return nil, nil
	}
	out := make(map[string]any, len(attrs))
	for name, raw := range attrs {
		field, ok := desc.Field(name)
		if !ok {
			return nil, validationError(desc.Name, fmt.Sprintf("unknown attribute %q", name))
		}
		if raw == nil {
			out[name] = nil
			continue
		}
		v, err := coerce(field, raw)
		if err != nil {
			return nil, validationError(desc.Name, fmt.Sprintf("attribute %q: %v", name, err))
		}
		out[name] = v
	}
	entity.CanonicalizeAttrs(out)
	return out, nil
}

func coerce(f entity.Field, raw any) (any, error) {
	switch f.Kind {
	case entity.KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return s, nil

	case entity.KindInt, entity.KindLong, entity.KindTypeRef:
		return coerceInt(raw)

	case entity.KindFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
		return nil, fmt.Errorf("expected float, got %T", raw)

	case entity.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return b, nil

	case entity.KindTimestamp:
		switch v := raw.(type) {
		case time.Time:
			return v.UTC(), nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, fmt.Errorf("expected RFC 3339 timestamp: %v", err)
			}
			return t.UTC(), nil
		}
		return nil, fmt.Errorf("expected timestamp, got %T", raw)

	case entity.KindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected enum string, got %T", raw)
		}
		for _, allowed := range f.Enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("value %q is not among the declared enum values", s)

	case entity.KindBlob:
		switch v := raw.(type) {
		case []byte:
			return v, nil
		case string:
			b, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return nil, fmt.Errorf("expected base64 blob: %v", err)
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected blob, got %T", raw)

	default:
		return nil, fmt.Errorf("unhandled kind %q", f.Kind)
	}
}

// coerceInt widens the integer types and accepts integral float64, which is
// how JSON numbers arrive.
func coerceInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("expected integer, got fractional %v", v)
		}
		return int64(v), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", raw)
}
