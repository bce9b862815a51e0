package application

import (
	"context"
	"time"
)

// HealthStatus is the aggregated state of the service or one component.
type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
)

// HealthCheck tests one dependency. A failing required check takes the
// whole service down; a failing optional one only degrades it.
type HealthCheck struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

// ComponentHealth is the result of one HealthCheck.
type ComponentHealth struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// HealthReport is the health view served by the HTTP API.
type HealthReport struct {
	Status     HealthStatus      `json:"status"`
	Components []ComponentHealth `json:"components"`
	Wizards    int               `json:"open_wizards"`
}

// HealthService runs dependency checks on demand.
type HealthService struct {
	checks   []HealthCheck
	registry *WizardRegistry
	timeout  time.Duration
}

// NewHealthService creates a HealthService. registry may be nil.
func NewHealthService(registry *WizardRegistry, checks ...HealthCheck) *HealthService {
	return &HealthService{
		checks:   checks,
		registry: registry,
		timeout:  2 * time.Second,
	}
}

// Report runs every check and aggregates the results.
func (s *HealthService) Report(ctx context.Context) HealthReport {
	report := HealthReport{Components: make([]ComponentHealth, 0, len(s.checks))}
	for _, hc := range s.checks {
		report.Components = append(report.Components, s.run(ctx, hc))
	}
	report.Status = combinedHealth(report.Components)
	if s.registry != nil {
		report.Wizards = s.registry.Len()
	}
	return report
}

func (s *HealthService) run(ctx context.Context, hc HealthCheck) ComponentHealth {
	checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := ComponentHealth{Name: hc.Name, Status: HealthOK}
	if err := hc.Check(checkCtx); err != nil {
		result.Status = HealthDegraded
		if hc.Required {
			result.Status = HealthDown
		}
		result.Error = err.Error()
	}
	return result
}

// combinedHealth aggregates component states.
// Priority: down > degraded > ok.
func combinedHealth(components []ComponentHealth) HealthStatus {
	var hasDown, hasDegraded bool
	for _, c := range components {
		switch c.Status {
		case HealthDown:
			hasDown = true
		case HealthDegraded:
			hasDegraded = true
		case HealthOK:
			// healthy -- no flag needed
		}
	}

	if hasDown {
		return HealthDown
	}
	if hasDegraded {
		return HealthDegraded
	}
	return HealthOK
}
