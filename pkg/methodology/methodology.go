package methodology

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

// NodeBinding controls whether a strategy requires a focus concept.
type NodeBinding string

const (
	// NodeBindingRequired means the strategy targets a specific concept and
	// node scoring runs for it.
	NodeBindingRequired NodeBinding = "required"
	// NodeBindingNone means the strategy operates without a focus concept.
	// Callers must handle the absent focus; it is never defaulted.
	NodeBindingNone NodeBinding = "none"
)

// Phase names used by phase multiplier and bonus tables.
const (
	PhaseEarly = "early"
	PhaseMid   = "mid"
	PhaseLate  = "late"
)

// StrategyConfig declares a questioning strategy: its signal-weight profile,
// whether it binds to a focus concept, and optional per-concept-type
// priorities. Weight keys may mix global and node-scoped signal names; the
// scorer partitions them by namespace at scoring time.
type StrategyConfig struct {
	Name             string             `yaml:"name" validate:"required"`
	Description      string             `yaml:"description"`
	NodeBinding      NodeBinding        `yaml:"node_binding" validate:"required,oneof=required none"`
	Weights          map[string]float64 `yaml:"weights" validate:"required,min=1"`
	NodeTypePriority map[string]float64 `yaml:"node_type_priority,omitempty"`
}

// PhaseConfig holds per-strategy score adjustments for one interview phase.
// Missing entries default to multiplier 1.0 and bonus 0.0.
type PhaseConfig struct {
	Multipliers map[string]float64 `yaml:"multipliers,omitempty"`
	Bonuses     map[string]float64 `yaml:"bonuses,omitempty"`
}

// PhaseBoundaries defines the node-count thresholds that split a session
// into early/mid/late. A nil value is a valid default, not an error; the
// engine falls back to built-in boundaries.
type PhaseBoundaries struct {
	EarlyMaxNodes int `yaml:"early_max_nodes" validate:"min=1"`
	MidMaxNodes   int `yaml:"mid_max_nodes" validate:"min=2"`
}

// SignalRange declares a normalization range for a numeric signal. Resolved
// values are mapped to [0, 1] before weighting.
type SignalRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// CanonicalConfig enables and tunes the optional canonical slot layer.
type CanonicalConfig struct {
	Enabled             bool    `yaml:"enabled"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" validate:"gt=0,lte=1"`
	MinSupport          int     `yaml:"min_support" validate:"min=1"`
}

// Methodology is one declarative interviewing methodology: an ordered
// strategy list plus phase, normalization, and canonical-layer settings.
// Strategy declaration order is significant; it breaks scoring ties.
type Methodology struct {
	ID              string                 `yaml:"id" validate:"required"`
	Name            string                 `yaml:"name" validate:"required"`
	Description     string                 `yaml:"description"`
	Strategies      []StrategyConfig       `yaml:"strategies" validate:"required,min=1,dive"`
	PhaseBoundaries *PhaseBoundaries       `yaml:"phase_boundaries,omitempty"`
	Phases          map[string]PhaseConfig `yaml:"phases,omitempty"`
	Normalization   map[string]SignalRange `yaml:"normalization,omitempty"`
	Canonical       *CanonicalConfig       `yaml:"canonical,omitempty"`
}

var validate = validator.New()

// Parse unmarshals and validates a single methodology document.
func Parse(data []byte) (*Methodology, error) {
	m := new(Methodology)
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, &ConfigurationError{Reason: "unparseable methodology document", Err: err}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.foldNodeTypePriorities()
	return m, nil
}

// LoadFile reads and parses one methodology YAML file.
func LoadFile(path string) (*Methodology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("cannot read methodology file %s", path), Err: err}
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", path, err)
	}
	return m, nil
}

// Validate checks structural and semantic constraints beyond what the YAML
// schema can express. Any violation is a ConfigurationError.
func (m *Methodology) Validate() error {
	if err := validate.Struct(m); err != nil {
		return &ConfigurationError{Reason: "methodology failed schema validation", Err: err}
	}

	seen := make(map[string]struct{}, len(m.Strategies))
	for _, s := range m.Strategies {
		if _, dup := seen[s.Name]; dup {
			return NewConfigurationError("duplicate strategy %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}

	for phase, cfg := range m.Phases {
		if phase != PhaseEarly && phase != PhaseMid && phase != PhaseLate {
			return NewConfigurationError("unknown phase %q (want early, mid or late)", phase)
		}
		for _, table := range []map[string]float64{cfg.Multipliers, cfg.Bonuses} {
			for name := range table {
				if _, ok := seen[name]; !ok {
					return NewConfigurationError("phase %q adjusts undeclared strategy %q", phase, name)
				}
			}
		}
	}

	if b := m.PhaseBoundaries; b != nil && b.MidMaxNodes <= b.EarlyMaxNodes {
		return NewConfigurationError(
			"phase boundaries out of order: mid_max_nodes %d <= early_max_nodes %d",
			b.MidMaxNodes, b.EarlyMaxNodes,
		)
	}

	for signal, r := range m.Normalization {
		if r.Max <= r.Min {
			return NewConfigurationError("normalization range for %q is empty (min %v, max %v)", signal, r.Min, r.Max)
		}
	}

	return nil
}

// Strategy returns the named strategy. An unknown name is a
// ConfigurationError, never a silent fallback.
func (m *Methodology) Strategy(name string) (*StrategyConfig, error) {
	for i := range m.Strategies {
		if m.Strategies[i].Name == name {
			return &m.Strategies[i], nil
		}
	}
	return nil, NewConfigurationError("strategy %q not defined in methodology %q", name, m.ID)
}

// PhaseAdjustment returns the multiplier and bonus for a strategy in the
// given phase, applying the documented defaults of 1.0 and 0.0.
func (m *Methodology) PhaseAdjustment(phase, strategy string) (multiplier, bonus float64) {
	multiplier = 1.0
	cfg, ok := m.Phases[phase]
	if !ok {
		return multiplier, 0
	}
	if v, ok := cfg.Multipliers[strategy]; ok {
		multiplier = v
	}
	if v, ok := cfg.Bonuses[strategy]; ok {
		bonus = v
	}
	return multiplier, bonus
}

// foldNodeTypePriorities rewrites node_type_priority entries into
// technique.node.type.<type> weights so the node scorer needs no special
// handling for type affinity.
func (m *Methodology) foldNodeTypePriorities() {
	for i := range m.Strategies {
		s := &m.Strategies[i]
		for conceptType, priority := range s.NodeTypePriority {
			key := "technique.node.type." + strings.ToLower(conceptType)
			s.Weights[key] += priority
		}
	}
}

// Registry holds all loaded methodologies keyed by id.
type Registry struct {
	methodologies map[string]*Methodology
}

// NewRegistry creates an empty methodology registry.
func NewRegistry() *Registry {
	return &Registry{methodologies: make(map[string]*Methodology)}
}

// Add registers a methodology. A duplicate id is a ConfigurationError.
func (r *Registry) Add(m *Methodology) error {
	if _, dup := r.methodologies[m.ID]; dup {
		return NewConfigurationError("methodology %q registered twice", m.ID)
	}
	r.methodologies[m.ID] = m
	return nil
}

// Get returns the methodology with the given id. An unknown id is a
// ConfigurationError.
func (r *Registry) Get(id string) (*Methodology, error) {
	m, ok := r.methodologies[id]
	if !ok {
		return nil, NewConfigurationError("methodology %q not found", id)
	}
	return m, nil
}

// IDs returns all registered methodology ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.methodologies))
	for id := range r.methodologies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDir loads every *.yaml / *.yml file in dir into a registry.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("cannot read methodology directory %s", dir), Err: err}
	}

	r := NewRegistry()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		m, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if err := r.Add(m); err != nil {
			return nil, err
		}
	}
	if len(r.methodologies) == 0 {
		return nil, NewConfigurationError("no methodology files found in %s", dir)
	}
	return r, nil
}
