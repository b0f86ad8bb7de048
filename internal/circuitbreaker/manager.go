package circuitbreaker

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Manager hands out one breaker per backend endpoint group.
type Manager struct {
	defaults Config
	breakers map[string]*CircuitBreaker
	mutex    sync.Mutex
	logger   *logrus.Logger
}

func NewManager(defaults Config, logger *logrus.Logger) *Manager {
	return &Manager{
		defaults: defaults,
		breakers: make(map[string]*CircuitBreaker),
		logger:   logger,
	}
}

func (m *Manager) Get(name string) *CircuitBreaker {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if breaker, exists := m.breakers[name]; exists {
		return breaker
	}

	config := m.defaults
	config.Name = name
	breaker := New(config, m.logger)
	m.breakers[name] = breaker

	m.logger.WithFields(logrus.Fields{
		"circuit_breaker": name,
		"max_failures":    breaker.maxFailures,
		"timeout":         breaker.timeout.String(),
	}).Debug("Circuit breaker created")

	return breaker
}

// AllMetrics returns the metrics of every breaker, sorted by name.
func (m *Manager) AllMetrics() []Metrics {
	m.mutex.Lock()
	breakers := make([]*CircuitBreaker, 0, len(m.breakers))
	for _, b := range m.breakers {
		breakers = append(breakers, b)
	}
	m.mutex.Unlock()

	metrics := make([]Metrics, 0, len(breakers))
	for _, b := range breakers {
		metrics = append(metrics, b.Metrics())
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Name < metrics[j].Name })
	return metrics
}

func (m *Manager) ResetAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, breaker := range m.breakers {
		breaker.Reset()
	}
	m.logger.Info("All circuit breakers reset")
}
