package factory

import (
	"fmt"
	"time"
)

// Expression is an attribute value computed by an Evaluator against the state
// collapsed so far. Every collapsed attribute is bound as a variable.
type Expression struct {
	Source    string
	Evaluator Evaluator
}

// Expr returns an expression evaluated by the factory's evaluator.
func Expr(source string) Expression {
	return Expression{Source: source}
}

// ExprWith returns an expression evaluated by evaluator instead of the
// factory's evaluator.
func ExprWith(evaluator Evaluator, source string) Expression {
	return Expression{Source: source, Evaluator: evaluator}
}

func (r *resolver) evaluate(key string, expr Expression, state Attributes) (any, error) {
	evaluator := expr.Evaluator
	if evaluator == nil {
		evaluator = r.cfg.evaluator
	}
	if evaluator == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoEvaluator, r.name, key)
	}
	engine := evaluatorEngineName(evaluator)
	if expr.Source == "" {
		return nil, attributeError(compileError(engine, "", r.name, ErrEmptyExpression), r.name, key, engine, "")
	}
	ctx := RuleContext{
		Snapshot: state,
		Args:     r.cfg.args,
		Metadata: map[string]any{"factory": r.name},
		Factory:  r.name,
	}.withDefaults()
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr.Source)
	duration := time.Since(start)
	evalErr = attributeError(evalErr, ctx.factoryLabel(), key, engine, expr.Source)
	r.cfg.evaluatorLog().LogEvaluation(EvaluatorLogEvent{
		Engine:    engine,
		Expr:      expr.Source,
		Factory:   ctx.factoryLabel(),
		Attribute: key,
		Duration:  duration,
		Err:       evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func defaultEvaluator(cfg factoryConfig) Evaluator {
	var exprOpts []ExprEvaluatorOption
	if cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cfg.programCache))
	}
	if cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.functions))
	}
	return NewExprEvaluator(exprOpts...)
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if isJSEvaluator(e) {
			return "js"
		}
		return "custom"
	}
}
