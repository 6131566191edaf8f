package contracts

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Fixed4 numeric(…,4) 컬럼 값
// JSON/DB에는 소수점 4자리 문자열("0.7500")로 기록됨
type Fixed4 float64

// NewFixed4 rounds v half away from zero to four decimals
func NewFixed4(v float64) Fixed4 {
	return Fixed4(Round(v, 4))
}

// Float64 returns the plain value
func (f Fixed4) Float64() float64 {
	return float64(f)
}

// String formats with exactly four decimals
func (f Fixed4) String() string {
	return strconv.FormatFloat(float64(f), 'f', 4, 64)
}

// MarshalJSON encodes as a quoted decimal string
func (f Fixed4) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON accepts both "0.7500" and 0.75
func (f *Fixed4) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("fixed4: parse %q: %w", s, err)
		}
		*f = NewFixed4(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("fixed4: %w", err)
	}
	*f = NewFixed4(v)
	return nil
}

// ParseFixed4 parses a numeric column read back as text
func ParseFixed4(s string) (Fixed4, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("fixed4: parse %q: %w", s, err)
	}
	return NewFixed4(v), nil
}

// Round rounds v to the given number of decimals
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
