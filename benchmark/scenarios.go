package benchmark

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-yolo/inference/providers"
)

// Scenario is one measured configuration of the detector.
type Scenario struct {
	Name       string           `json:"name"        yaml:"name"`
	Provider   providers.Config `json:"provider"    yaml:"provider"`
	Iterations int              `json:"iterations"  yaml:"iterations"`
	WarmupRuns int              `json:"warmup_runs" yaml:"warmup_runs"`
}

// Validate checks the iteration counts and the provider.
func (s Scenario) Validate() error {
	if s.Iterations <= 0 {
		return errors.Errorf("scenario %q: iterations must be positive, got %d", s.Name, s.Iterations)
	}
	if s.WarmupRuns < 0 {
		return errors.Errorf("scenario %q: warmup runs must not be negative, got %d", s.Name, s.WarmupRuns)
	}
	return errors.Wrapf(s.Provider.Validate(), "scenario %q", s.Name)
}

// ScenarioBuilder helps build scenarios with a fluent API.
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder starts a CPU scenario with 100 iterations and 10 warmup runs.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Provider:   providers.DefaultConfig(),
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithProvider sets the execution provider.
func (sb *ScenarioBuilder) WithProvider(p providers.Config) *ScenarioBuilder {
	sb.scenario.Provider = p
	return sb
}

// WithBackend switches the provider backend, keeping its other settings.
func (sb *ScenarioBuilder) WithBackend(b providers.Backend) *ScenarioBuilder {
	sb.scenario.Provider.Backend = b
	return sb
}

// WithIterations sets the number of measured iterations.
func (sb *ScenarioBuilder) WithIterations(n int) *ScenarioBuilder {
	sb.scenario.Iterations = n
	return sb
}

// WithWarmupRuns sets the number of unmeasured iterations.
func (sb *ScenarioBuilder) WithWarmupRuns(n int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = n
	return sb
}

// Build returns the scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ScenarioSet is a named collection of scenarios.
type ScenarioSet struct {
	Name        string     `json:"name"        yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Scenarios   []Scenario `json:"scenarios"   yaml:"scenarios"`
}

// ProviderScenarios returns one scenario per backend, all sharing base's
// tuning and iteration counts.
//
// Arguments:
//   - base: The provider settings every scenario starts from.
//   - backends: The backends to compare.
//   - iterations: Measured iterations per scenario.
//   - warmup: Warmup iterations per scenario.
//
// Returns:
//   - *ScenarioSet: The set, in the order of backends.
func ProviderScenarios(base providers.Config, backends []providers.Backend, iterations, warmup int) *ScenarioSet {
	set := &ScenarioSet{
		Name:        "Provider Comparison",
		Description: "Runs the same model and images on each execution provider",
	}
	for _, b := range backends {
		set.Scenarios = append(set.Scenarios, NewScenarioBuilder(fmt.Sprintf("yolo_%s", b)).
			WithProvider(base).
			WithBackend(b).
			WithIterations(iterations).
			WithWarmupRuns(warmup).
			Build())
	}
	return set
}

// ThreadScenarios returns one CPU scenario per intra-op thread count.
func ThreadScenarios(base providers.Config, threads []int, iterations, warmup int) *ScenarioSet {
	set := &ScenarioSet{
		Name:        "Thread Comparison",
		Description: "Runs the same model and images with different intra-op thread counts",
	}
	for _, n := range threads {
		p := base
		p.Optimization.IntraOpThreads = n
		set.Scenarios = append(set.Scenarios, NewScenarioBuilder(fmt.Sprintf("yolo_%s_threads_%d", p.Backend, n)).
			WithProvider(p).
			WithIterations(iterations).
			WithWarmupRuns(warmup).
			Build())
	}
	return set
}

// LoadScenarioSet reads a YAML scenario file.
//
// Scenarios that leave iterations or warmup_runs unset get the builder defaults.
func LoadScenarioSet(path string) (*ScenarioSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read scenario file %s", path)
	}

	var set ScenarioSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, errors.Wrapf(err, "failed to parse scenario file %s", path)
	}
	if len(set.Scenarios) == 0 {
		return nil, errors.Errorf("scenario file %s has no scenarios", path)
	}

	defaults := NewScenarioBuilder("").Build()
	for i := range set.Scenarios {
		s := &set.Scenarios[i]
		if s.Name == "" {
			s.Name = fmt.Sprintf("scenario_%d", i+1)
		}
		if s.Iterations == 0 {
			s.Iterations = defaults.Iterations
		}
		if s.WarmupRuns == 0 {
			s.WarmupRuns = defaults.WarmupRuns
		}
		if s.Provider.Backend == "" {
			s.Provider.Backend = providers.BackendCPU
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return &set, nil
}
