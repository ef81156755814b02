package factory

import (
	"errors"
	"fmt"
	"strings"
)

// Phases recorded on EvaluationError.
const (
	PhaseCompile = "compile"
	PhaseRun     = "run"
)

// EvaluationError reports an expression attribute that failed to compile or
// run. Factory and Attribute locate the value within the definition or state
// that produced it.
type EvaluationError struct {
	Factory   string
	Attribute string
	Engine    string
	Phase     string
	Expr      string
	Err       error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("factory: ")
	if loc := e.Location(); loc != "" {
		b.WriteString(loc)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s %s of %q failed", e.Engine, e.phase(), e.Expr)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(strings.TrimPrefix(e.Err.Error(), "factory: "))
	}
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Location returns "factory.attribute", or whichever half is known.
func (e *EvaluationError) Location() string {
	switch {
	case e.Factory != "" && e.Attribute != "":
		return e.Factory + "." + e.Attribute
	case e.Attribute != "":
		return e.Attribute
	default:
		return e.Factory
	}
}

func (e *EvaluationError) phase() string {
	if e.Phase == "" {
		return PhaseRun
	}
	return e.Phase
}

func compileError(engine, expr, factory string, err error) error {
	return evaluationError(engine, PhaseCompile, expr, factory, err)
}

func runError(engine, expr, factory string, err error) error {
	return evaluationError(engine, PhaseRun, expr, factory, err)
}

func evaluationError(engine, phase, expr, factory string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}
	return &EvaluationError{
		Factory: factory,
		Engine:  engine,
		Phase:   phase,
		Expr:    expr,
		Err:     err,
	}
}

// attributeError ties err to the attribute whose expression produced it.
// Errors from custom evaluators are wrapped as run failures. Fields an
// evaluator already set are kept.
func attributeError(err error, factory, attribute, engine, expr string) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{
			Factory:   factory,
			Attribute: attribute,
			Engine:    engine,
			Phase:     PhaseRun,
			Expr:      expr,
			Err:       err,
		}
	}
	if evalErr.Factory == "" {
		evalErr.Factory = factory
	}
	if evalErr.Attribute == "" {
		evalErr.Attribute = attribute
	}
	if evalErr.Engine == "" {
		evalErr.Engine = engine
	}
	if evalErr.Expr == "" {
		evalErr.Expr = expr
	}
	return err
}
