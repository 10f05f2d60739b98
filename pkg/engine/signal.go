package engine

import (
	"fmt"
	"strings"
)

// SignalKind discriminates the value carried by a SignalValue.
type SignalKind int

const (
	SignalBool SignalKind = iota
	SignalNumber
	SignalCategory
)

// SignalValue is a boolean, numeric or categorical signal value bound to a
// namespaced signal name. Values are immutable once emitted by a detector.
type SignalValue struct {
	Kind     SignalKind
	Bool     bool
	Number   float64
	Category string
}

// BoolValue wraps a boolean signal value.
func BoolValue(v bool) SignalValue {
	return SignalValue{Kind: SignalBool, Bool: v}
}

// NumberValue wraps a numeric signal value.
func NumberValue(v float64) SignalValue {
	return SignalValue{Kind: SignalNumber, Number: v}
}

// CategoryValue wraps a categorical signal value.
func CategoryValue(v string) SignalValue {
	return SignalValue{Kind: SignalCategory, Category: v}
}

// String renders the value for decomposition records and logging.
func (v SignalValue) String() string {
	switch v.Kind {
	case SignalBool:
		return fmt.Sprintf("%t", v.Bool)
	case SignalNumber:
		return fmt.Sprintf("%g", v.Number)
	default:
		return v.Category
	}
}

// nodeScopedPrefixes classify a signal as per-concept. The partition between
// global and node-scoped signals is decided purely by the key string; it is
// the invariant the two-stage scorer is built on.
var nodeScopedPrefixes = []string{
	"graph.node.",
	"technique.node.",
	"meta.node.",
}

// IsNodeScoped reports whether the signal key belongs to the node-scoped
// namespace.
func IsNodeScoped(key string) bool {
	for _, prefix := range nodeScopedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// SignalSet is the merged output of one detection pass: a single global map
// plus per-concept signal maps keyed by concept id.
type SignalSet struct {
	Global map[string]SignalValue
	Node   map[string]map[string]SignalValue
}

// NewSignalSet creates an empty signal set.
func NewSignalSet() *SignalSet {
	return &SignalSet{
		Global: make(map[string]SignalValue),
		Node:   make(map[string]map[string]SignalValue),
	}
}

func (s *SignalSet) mergeGlobal(detector string, values map[string]SignalValue) error {
	for key, value := range values {
		if IsNodeScoped(key) {
			return &SignalDetectionError{
				Detector: detector,
				Err:      fmt.Errorf("global detector emitted node-scoped key %q", key),
			}
		}
		s.Global[key] = value
	}
	return nil
}

func (s *SignalSet) mergeNode(detector string, values map[string]map[string]SignalValue) error {
	for conceptID, signals := range values {
		bucket, ok := s.Node[conceptID]
		if !ok {
			bucket = make(map[string]SignalValue, len(signals))
			s.Node[conceptID] = bucket
		}
		for key, value := range signals {
			if !IsNodeScoped(key) {
				return &SignalDetectionError{
					Detector: detector,
					Err:      fmt.Errorf("node detector emitted global key %q", key),
				}
			}
			bucket[key] = value
		}
	}
	return nil
}
