package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// TrimSpaceSlice trims whitespace from all strings in a slice and filters out empty strings
func TrimSpaceSlice(items []string) []string {
	var result []string
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParseCommaDelimited parses a comma-delimited string into a slice of trimmed, non-empty strings
func ParseCommaDelimited(input string) []string {
	if input == "" {
		return nil
	}

	parts := strings.Split(input, ",")
	return TrimSpaceSlice(parts)
}

// ParseIntList parses a comma-delimited list of integers such as "5,10,20"
func ParseIntList(input string) ([]int, error) {
	var values []int
	for _, part := range ParseCommaDelimited(input) {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q in list %q", part, input)
		}
		values = append(values, v)
	}
	return values, nil
}
