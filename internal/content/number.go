package content

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric field that tolerates loosely typed input. Form editors
// send levels and stat values as strings; anything that does not parse as a
// finite number decodes to 0 instead of failing the whole section.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*n = 0
		return nil
	}
	*n = coerceNumber(raw)
	return nil
}

func coerceNumber(raw any) Number {
	switch v := raw.(type) {
	case float64:
		return finite(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return finite(f)
	default:
		return 0
	}
}

func finite(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Number(f)
}
