package factory

import (
	"errors"
	"fmt"
)

var (
	// ErrContributionType reports a state contribution that is neither an
	// attribute map nor a state function.
	ErrContributionType = errors.New("factory: state contribution must be a map or a state function")
	// ErrMaxDepth reports nested builders exceeding the configured depth,
	// usually a builder that transitively contains itself.
	ErrMaxDepth = errors.New("factory: maximum nesting depth exceeded")
	// ErrSchemaMismatch reports definition keys that differ from an explicit
	// schema.
	ErrSchemaMismatch = errors.New("factory: definition does not match schema")
	// ErrConstruction reports arguments the constructor cannot accept.
	ErrConstruction = errors.New("factory: construction failed")
	// ErrNoConstructor reports a target type without a usable default
	// constructor.
	ErrNoConstructor = errors.New("factory: no constructor configured")
	// ErrNoEvaluator reports an expression value on a factory without an
	// evaluator.
	ErrNoEvaluator = errors.New("factory: evaluator not configured")
	// ErrEmptyExpression reports an expression with no source.
	ErrEmptyExpression = errors.New("factory: expression must not be empty")
	// errRuleWithoutEvaluator reports a compiled rule detached from its
	// evaluator.
	errRuleWithoutEvaluator = errors.New("factory: compiled rule missing evaluator")
)

// ContributionError describes a malformed state contribution found during
// collapse.
type ContributionError struct {
	Index int
	Label string
	Type  string
}

func (e *ContributionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v: layer %d (%s) has type %s", ErrContributionType, e.Index, e.Label, e.Type)
}

func (e *ContributionError) Unwrap() error {
	return ErrContributionType
}

// ConstructionError describes an argument the constructor cannot accept.
type ConstructionError struct {
	Target string
	Field  string
	Want   string
	Got    string
	Reason string
}

func (e *ConstructionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Field != "" && e.Want != "" && e.Reason != "":
		return fmt.Sprintf("%v: %s.%s wants %s, got %s (%s)", ErrConstruction, e.Target, e.Field, e.Want, e.Got, e.Reason)
	case e.Field != "" && e.Want != "":
		return fmt.Sprintf("%v: %s.%s wants %s, got %s", ErrConstruction, e.Target, e.Field, e.Want, e.Got)
	case e.Field != "":
		return fmt.Sprintf("%v: %s.%s: %s", ErrConstruction, e.Target, e.Field, e.Reason)
	default:
		return fmt.Sprintf("%v: %s: %s", ErrConstruction, e.Target, e.Reason)
	}
}

func (e *ConstructionError) Unwrap() error {
	return ErrConstruction
}

func maxDepthError(name string, depth int) error {
	return fmt.Errorf("%w: %s reached depth %d", ErrMaxDepth, name, depth)
}
