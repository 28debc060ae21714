package helpers

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePositiveInt parses a form value that must be a positive integer,
// such as a ticket quantity.
func ParsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
