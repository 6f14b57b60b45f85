package printfdf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Format renders a single Go value through the directive spec, as if the
// device had sent it. Integers are truncated to the directive's argument
// size, floats rounded to float32 unless the directive reads 8 bytes.
//
//	Format("+.2f", 21.5) // "+21.50"
func Format(spec string, value any) (string, error) {
	d, err := ParseDirective([]byte(spec))
	if err != nil {
		return "", err
	}
	arg, err := d.argument(value)
	if err != nil {
		return "", err
	}
	return d.Render(arg)
}

// argument encodes value the way the device would send it for d.
func (d Directive) argument(value any) ([]byte, error) {
	switch d.Kind {
	case KindPercent:
		return nil, nil
	case KindCString:
		if s, ok := value.(string); ok {
			return []byte(s), nil
		}
	case KindChar:
		if s, ok := value.(string); ok && len(s) > 0 {
			return []byte{s[0]}, nil
		}
		if v, ok := toInt64(value); ok {
			return []byte{byte(v)}, nil
		}
	case KindFloat32:
		if v, ok := toFloat64(value); ok {
			return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(v))), nil
		}
	case KindFloat64:
		if v, ok := toFloat64(value); ok {
			return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)), nil
		}
	default:
		if v, ok := toInt64(value); ok {
			return binary.LittleEndian.AppendUint64(nil, uint64(v))[:d.Size], nil
		}
	}
	return nil, fmt.Errorf("cannot format %T with %%%s", value, d.Raw)
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	}
	return 0, false
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	if i, ok := toInt64(value); ok {
		return float64(i), true
	}
	return 0, false
}
