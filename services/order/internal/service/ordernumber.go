package service

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const orderTokenLength = 8

// NewNumberGenerator returns order numbers like "ORD-7ZK3M9QD". The token is the
// tail of a ULID's random part in Crockford base32, so it never contains I, L, O or U.
func NewNumberGenerator(prefix string) func() string {
	prefix = strings.TrimSuffix(prefix, "-")

	return func() string {
		id := ulid.Make().String()
		return prefix + "-" + id[len(id)-orderTokenLength:]
	}
}
