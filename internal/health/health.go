package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CheckStatus represents the result of a health check
type CheckStatus int

const (
	StatusHealthy CheckStatus = iota
	StatusDegraded
	StatusUnhealthy
	StatusUnknown
)

func (s CheckStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult contains the result of a health check
type CheckResult struct {
	Status    CheckStatus            `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Timestamp time.Time              `json:"timestamp"`
	Component string                 `json:"component"`
	Critical  bool                   `json:"critical"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
	// IsCritical returns true if this check's failure should mark the service not ready
	IsCritical() bool
	Timeout() time.Duration
}

// Report is the overall service health plus per-component results
type Report struct {
	Status     CheckStatus            `json:"status"`
	Message    string                 `json:"message,omitempty"`
	Ready      bool                   `json:"ready"`
	Degraded   bool                   `json:"degraded"`
	Components map[string]CheckResult `json:"components,omitempty"`
	Duration   time.Duration          `json:"duration"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Manager runs registered checks on demand
type Manager struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{checkers: make(map[string]Checker), logger: logger}
}

// Register adds a checker. Names must be unique.
func (m *Manager) Register(c Checker) error {
	if c == nil || c.Name() == "" {
		return fmt.Errorf("health checker must have a name")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.checkers[c.Name()]; exists {
		return fmt.Errorf("health checker %s already registered", c.Name())
	}
	m.checkers[c.Name()] = c
	m.logger.Info("Registered health checker",
		zap.String("name", c.Name()),
		zap.Bool("critical", c.IsCritical()))
	return nil
}

// Names lists registered checkers in sorted order
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.checkers))
	for name := range m.checkers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Check runs every checker concurrently, each under its own timeout
func (m *Manager) Check(ctx context.Context) Report {
	start := time.Now()
	m.mu.RLock()
	checkers := make([]Checker, 0, len(m.checkers))
	for _, c := range m.checkers {
		checkers = append(checkers, c)
	}
	m.mu.RUnlock()

	results := make(map[string]CheckResult, len(checkers))
	var (
		wg  sync.WaitGroup
		rmu sync.Mutex
	)
	for _, c := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			res := runCheck(ctx, c)
			rmu.Lock()
			results[c.Name()] = res
			rmu.Unlock()
		}(c)
	}
	wg.Wait()

	report := summarize(results)
	report.Duration = time.Since(start)
	report.Timestamp = start
	if !report.Ready {
		m.logger.Warn("Service not ready", zap.String("message", report.Message))
	}
	return report
}

func runCheck(ctx context.Context, c Checker) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	start := time.Now()
	res := c.Check(checkCtx)
	res.Component = c.Name()
	res.Critical = c.IsCritical()
	res.Duration = time.Since(start)
	res.Timestamp = start
	return res
}

// summarize derives overall status. Only critical failures make the service
// unready; with no checks registered the service is healthy.
func summarize(components map[string]CheckResult) Report {
	var critical, nonCritical, degraded int
	for _, r := range components {
		switch r.Status {
		case StatusDegraded:
			degraded++
		case StatusUnhealthy, StatusUnknown:
			if r.Critical {
				critical++
			} else {
				nonCritical++
			}
		}
	}

	rep := Report{Components: components, Ready: true}
	switch {
	case critical > 0:
		rep.Status = StatusUnhealthy
		rep.Ready = false
		rep.Message = fmt.Sprintf("%d critical component(s) failing", critical)
	case degraded > 0:
		rep.Status = StatusDegraded
		rep.Message = fmt.Sprintf("%d component(s) degraded", degraded)
	case nonCritical > 0:
		rep.Status = StatusDegraded
		rep.Message = fmt.Sprintf("%d non-critical component(s) failing", nonCritical)
	default:
		rep.Status = StatusHealthy
		rep.Message = fmt.Sprintf("All %d components healthy", len(components))
	}
	rep.Degraded = rep.Status == StatusDegraded
	return rep
}
