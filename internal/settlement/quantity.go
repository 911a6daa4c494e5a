package settlement

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidQuantity = errors.New("quantity must be a positive whole number")

// ParseQuantity accepts only ASCII digits, so signs, decimals, exponents and
// whitespace inside the number are all rejected.
func ParseQuantity(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidQuantity
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, ErrInvalidQuantity
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}
