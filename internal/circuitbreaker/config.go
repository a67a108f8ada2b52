package circuitbreaker

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays <prefix>_MAX_REQUESTS, _INTERVAL, _TIMEOUT,
// _FAILURE_THRESHOLD and _SUCCESS_THRESHOLD onto base.
// Example prefix: "CB_CACHE".
func FromEnv(prefix string, base Config) Config {
	base.MaxRequests = envUint32(prefix+"_MAX_REQUESTS", base.MaxRequests)
	base.Interval = envDuration(prefix+"_INTERVAL", base.Interval)
	base.Timeout = envDuration(prefix+"_TIMEOUT", base.Timeout)
	base.FailureThreshold = envUint32(prefix+"_FAILURE_THRESHOLD", base.FailureThreshold)
	base.SuccessThreshold = envUint32(prefix+"_SUCCESS_THRESHOLD", base.SuccessThreshold)
	return base
}

func envUint32(key string, def uint32) uint32 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint32(n)
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
