package scheduler

import (
	"strconv"
	"strings"
)

// Matches compares left against right with op. Equality operators compare the
// strings exactly. Ordered operators parse both sides as floating point
// numbers and report false when either side does not parse.
func Matches(left string, op Operator, right string) bool {
	switch op {
	case OperatorEquals:
		return left == right
	case OperatorNotEquals:
		return left != right
	case OperatorGreater, OperatorLess:
		l, ok := parseNumber(left)
		if !ok {
			return false
		}
		r, ok := parseNumber(right)
		if !ok {
			return false
		}
		if op == OperatorGreater {
			return l > r
		}
		return l < r
	default:
		return false
	}
}

func parseNumber(value string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
