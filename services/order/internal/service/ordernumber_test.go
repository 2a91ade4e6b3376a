package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberGenerator(t *testing.T) {
	next := NewNumberGenerator("ORD")
	pattern := regexp.MustCompile(`^ORD-[0-9A-HJKMNP-TV-Z]{8}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		number := next()
		require.Regexp(t, pattern, number)

		_, dup := seen[number]
		require.False(t, dup, number)
		seen[number] = struct{}{}
	}
}

func TestNumberGenerator_TrimsDash(t *testing.T) {
	require.Regexp(t, `^WEB-[0-9A-Z]{8}$`, NewNumberGenerator("WEB-")())
}
