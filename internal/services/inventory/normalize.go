package inventory

import (
	"fmt"
	"strings"
)

// NormalizeCode applies the registry code format: surrounding whitespace is dropped
// and letters are upper-cased, so "  pat-001 " and "PAT-001" are the same asset.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// normalizeExpected normalizes a session's expected set. The set must be non-empty,
// and two inputs that normalize to the same code are rejected.
func normalizeExpected(codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: expected codes must not be empty", ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, raw := range codes {
		code := NormalizeCode(raw)
		if code == "" {
			return nil, fmt.Errorf("%w: blank asset code", ErrInvalidArgument)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("%w: duplicate asset code %q", ErrInvalidArgument, code)
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out, nil
}

// normalizeAdditions is the lenient variant used when growing an open session:
// repeats collapse instead of failing.
func normalizeAdditions(codes []string) ([]string, error) {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, raw := range codes {
		code := NormalizeCode(raw)
		if code == "" {
			return nil, fmt.Errorf("%w: blank asset code", ErrInvalidArgument)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out, nil
}
