package health

import (
	"context"
	"time"
)

// Pinger is anything with a cheap connectivity probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerPinger is a Pinger guarded by a circuit breaker
type BreakerPinger interface {
	Pinger
	BreakerOpen() bool
}

// PingChecker reports a dependency healthy when Ping succeeds. Responses slower
// than SlowAfter are reported degraded.
type PingChecker struct {
	name      string
	target    Pinger
	critical  bool
	timeout   time.Duration
	SlowAfter time.Duration
}

func NewPingChecker(name string, target Pinger, critical bool) *PingChecker {
	return &PingChecker{
		name:      name,
		target:    target,
		critical:  critical,
		timeout:   5 * time.Second,
		SlowAfter: 100 * time.Millisecond,
	}
}

func (p *PingChecker) Name() string           { return p.name }
func (p *PingChecker) IsCritical() bool       { return p.critical }
func (p *PingChecker) Timeout() time.Duration { return p.timeout }

func (p *PingChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	var res CheckResult

	if bp, ok := p.target.(BreakerPinger); ok && bp.BreakerOpen() {
		res.Status = StatusUnhealthy
		res.Error = "circuit breaker open"
		res.Message = p.name + " circuit breaker is open"
		res.Details = map[string]interface{}{"circuit_breaker_open": true}
		return res
	}

	err := p.target.Ping(ctx)
	latency := time.Since(start)
	res.Details = map[string]interface{}{"latency_ms": latency.Milliseconds()}
	switch {
	case err != nil:
		res.Status = StatusUnhealthy
		res.Error = err.Error()
		res.Message = p.name + " ping failed"
	case latency > p.SlowAfter:
		res.Status = StatusDegraded
		res.Message = p.name + " responding but with high latency"
	default:
		res.Status = StatusHealthy
		res.Message = p.name + " healthy"
	}
	return res
}
