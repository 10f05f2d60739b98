package engine

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// GlobalDetector derives whole-turn/whole-graph signals. Detectors are
// stateless: same context, same output.
type GlobalDetector interface {
	Name() string
	Detect(tc *TurnContext) (map[string]SignalValue, error)
}

// NodeDetector derives one signal map per tracked concept in a single call.
type NodeDetector interface {
	Name() string
	Detect(tc *TurnContext) (map[string]map[string]SignalValue, error)
}

// DetectorRegistry is the explicit startup-built registry of all signal
// detectors for a deployment. There is no implicit registration hook;
// everything a methodology can weight must be registered here.
type DetectorRegistry struct {
	global []GlobalDetector
	node   []NodeDetector
}

// NewDetectorRegistry creates an empty registry.
func NewDetectorRegistry() *DetectorRegistry {
	return &DetectorRegistry{}
}

// RegisterGlobal appends a global detector.
func (r *DetectorRegistry) RegisterGlobal(d GlobalDetector) {
	r.global = append(r.global, d)
}

// RegisterNode appends a node-scoped detector.
func (r *DetectorRegistry) RegisterNode(d NodeDetector) {
	r.node = append(r.node, d)
}

// DetectAll runs every registered detector against the turn context and
// merges the outputs into one SignalSet. Any detector error aborts the pass:
// partial signal coverage would silently corrupt downstream scoring.
func (r *DetectorRegistry) DetectAll(tc *TurnContext) (*SignalSet, error) {
	set := NewSignalSet()

	for _, d := range r.global {
		values, err := d.Detect(tc)
		if err != nil {
			return nil, &SignalDetectionError{Detector: d.Name(), Err: err}
		}
		if err := set.mergeGlobal(d.Name(), values); err != nil {
			return nil, err
		}
	}

	for _, d := range r.node {
		values, err := d.Detect(tc)
		if err != nil {
			return nil, &SignalDetectionError{Detector: d.Name(), Err: err}
		}
		if err := set.mergeNode(d.Name(), values); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// DetectorOptions configures the standard detector set.
type DetectorOptions struct {
	// TokenEncoding names the tiktoken encoding used by the response
	// token-count detector, e.g. "cl100k_base". Empty disables the detector.
	TokenEncoding string
}

// DefaultDetectorRegistry builds the standard detector set used by all
// built-in methodologies.
func DefaultDetectorRegistry(opts DetectorOptions) (*DetectorRegistry, error) {
	r := NewDetectorRegistry()

	r.RegisterGlobal(&responseQualityDetector{})
	r.RegisterGlobal(&graphStructureDetector{})
	r.RegisterGlobal(&temporalDetector{})
	r.RegisterGlobal(&strategyHistoryDetector{})
	r.RegisterGlobal(&velocityDetector{})

	if opts.TokenEncoding != "" {
		enc, err := tiktoken.GetEncoding(opts.TokenEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load token encoding %q: %w", opts.TokenEncoding, err)
		}
		r.RegisterGlobal(&tokenCountDetector{encoder: enc})
	}

	r.RegisterNode(&exhaustionDetector{})
	r.RegisterNode(&focusHistoryDetector{})
	r.RegisterNode(&connectivityDetector{})
	r.RegisterNode(&conceptTypeDetector{})

	return r, nil
}
