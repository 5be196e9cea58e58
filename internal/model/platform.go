package model

import (
	"fmt"
	"strings"
)

// Platform identifies an advertising platform. The two built-in platforms get
// platform-specific defaults and constraints; any other non-empty value is a
// custom platform that resolves to empty defaults and strict validation.
type Platform string

const (
	GoogleAds Platform = "googleads"
	MetaAds   Platform = "meta"
)

// Known returns true for platforms with built-in defaults and constraints.
func (p Platform) Known() bool {
	switch p {
	case GoogleAds, MetaAds:
		return true
	default:
		return false
	}
}

// KnownPlatforms returns the platforms shipped with built-in support.
func KnownPlatforms() []Platform {
	return []Platform{GoogleAds, MetaAds}
}

// ParsePlatform normalizes and validates a platform identifier string.
// Unknown identifiers are accepted as custom platforms; only an empty
// identifier is an error.
func ParsePlatform(s string) (Platform, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("platform identifier cannot be empty")
	}
	return Platform(s), nil
}

// String returns the platform identifier.
func (p Platform) String() string {
	return string(p)
}
