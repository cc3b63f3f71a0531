package keys

import (
	"strings"
)

const (
	// PfxOraclePrice is used for prefixing cached oracle quotes
	PfxOraclePrice = "oraclePrice"
	// PfxHealthCheck is used for prefixing health check keys
	PfxHealthCheck = "healthcheck"
)

// CustomKey joins key components with the specified delimiter
func CustomKey(delimiter string, components ...string) string {
	return strings.Join(components, delimiter)
}

// CacheKey joins cache key components
func CacheKey(components ...string) string {
	return CustomKey(":", components...)
}
