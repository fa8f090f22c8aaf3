// Package workload defines simulated operation scenarios used by the
// harness to exercise the instrumentation layer under load.
package workload

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Track categorizes an operation for the categorized instrumentor.
type Track string

const (
	TrackTool     Track = "tool"
	TrackResource Track = "resource"
	TrackPrompt   Track = "prompt"
)

// Operation describes one simulated operation: its latency profile,
// failure rate and the metadata attached to each call.
type Operation struct {
	Name        string        `yaml:"name"`
	Track       Track         `yaml:"track"`
	Method      string        `yaml:"method"`
	ClientInfo  string        `yaml:"client_info"`
	BaseLatency time.Duration `yaml:"base_latency"`
	Jitter      time.Duration `yaml:"jitter"`
	FailureRate float64       `yaml:"failure_rate"`
	Weight      int           `yaml:"weight"`
}

// Scenario is a weighted mix of operations.
type Scenario struct {
	Operations []Operation `yaml:"operations"`
}

// Error is the failure produced by a simulated operation.
type Error struct {
	Operation string
}

func (e *Error) Error() string {
	return fmt.Sprintf("simulated failure in %s", e.Operation)
}

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	sc.normalize()
	return &sc, nil
}

// DefaultScenario returns the built-in mix used when no scenario file
// is provided: a few operations with distinct latency profiles across
// all three tracks.
func DefaultScenario() *Scenario {
	sc := &Scenario{Operations: []Operation{
		{Name: "fetch_page", Track: TrackTool, Method: "tools/call", BaseLatency: 20 * time.Millisecond, Jitter: 10 * time.Millisecond, FailureRate: 0.05, Weight: 5},
		{Name: "crawl_site", Track: TrackTool, Method: "tools/call", BaseLatency: 80 * time.Millisecond, Jitter: 40 * time.Millisecond, FailureRate: 0.10, Weight: 2},
		{Name: "crawl://status", Track: TrackResource, Method: "resources/read", BaseLatency: 5 * time.Millisecond, Jitter: 2 * time.Millisecond, Weight: 3},
		{Name: "summarize_page", Track: TrackPrompt, Method: "prompts/get", BaseLatency: 40 * time.Millisecond, Jitter: 15 * time.Millisecond, FailureRate: 0.02, Weight: 1},
	}}
	sc.normalize()
	return sc
}

func (s *Scenario) validate() error {
	if len(s.Operations) == 0 {
		return fmt.Errorf("scenario has no operations")
	}
	for i, op := range s.Operations {
		if strings.TrimSpace(op.Name) == "" {
			return fmt.Errorf("operation %d has no name", i)
		}
		switch op.Track {
		case "", TrackTool, TrackResource, TrackPrompt:
		default:
			return fmt.Errorf("operation %q: unknown track %q", op.Name, op.Track)
		}
		if op.FailureRate < 0 || op.FailureRate > 1 {
			return fmt.Errorf("operation %q: failure_rate must be within [0, 1]", op.Name)
		}
		if op.BaseLatency < 0 || op.Jitter < 0 {
			return fmt.Errorf("operation %q: latencies cannot be negative", op.Name)
		}
		if op.Weight < 0 {
			return fmt.Errorf("operation %q: weight cannot be negative", op.Name)
		}
	}
	return nil
}

func (s *Scenario) normalize() {
	for i := range s.Operations {
		if s.Operations[i].Weight == 0 {
			s.Operations[i].Weight = 1
		}
		if s.Operations[i].Track == "" {
			s.Operations[i].Track = TrackTool
		}
	}
}

// Simulator picks operations from a scenario and produces their
// handlers. It is deterministic for a fixed seed and safe for
// concurrent use.
type Simulator struct {
	mu          sync.Mutex
	rnd         *rand.Rand
	scenario    *Scenario
	totalWeight int
}

// NewSimulator creates a Simulator. A zero seed selects a time-based one.
func NewSimulator(sc *Scenario, seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	total := 0
	for _, op := range sc.Operations {
		total += op.Weight
	}
	return &Simulator{
		rnd:         rand.New(rand.NewSource(seed)),
		scenario:    sc,
		totalWeight: total,
	}
}

// Pick returns the next operation, weighted by the scenario mix.
func (s *Simulator) Pick() Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.rnd.Intn(s.totalWeight)
	for _, op := range s.scenario.Operations {
		n -= op.Weight
		if n < 0 {
			return op
		}
	}
	return s.scenario.Operations[len(s.scenario.Operations)-1]
}

// Handler builds the zero-argument unit of work for op. It sleeps for
// the operation's latency profile (respecting ctx) and fails with
// probability FailureRate, returning "result_<name>" otherwise.
func (s *Simulator) Handler(op Operation) func(context.Context) (string, error) {
	delay := op.BaseLatency
	var fail bool
	s.mu.Lock()
	if op.Jitter > 0 {
		delay += time.Duration(s.rnd.Int63n(int64(op.Jitter)))
	}
	fail = op.FailureRate > 0 && s.rnd.Float64() < op.FailureRate
	s.mu.Unlock()

	return func(ctx context.Context) (string, error) {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		if fail {
			return "", &Error{Operation: op.Name}
		}
		return "result_" + op.Name, nil
	}
}
