package factory

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry layers registry over the fixture functions.
// Registered functions are callable by name and through call(name, ...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.registry = e.registry.merged(registry)
	}
}

// exprEvaluator executes attribute expressions using github.com/expr-lang/expr.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr. It is the
// evaluator factories use when none is configured.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{registry: FixtureFunctions()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles (or loads from cache) and runs expression with the
// collapsed attributes in ctx.Snapshot bound as variables.
func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, compileError("expr", expression, ctx.factoryLabel(), ErrEmptyExpression)
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, e.environment(ctx))
	if err != nil {
		return nil, runError("expr", expression, ctx.factoryLabel(), err)
	}
	return result, nil
}

// Compile returns a compiled rule that runs the program per invocation.
func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, compileError("expr", expression, "", ErrEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledRule{
		evaluator:  e,
		program:    program,
		expression: expression,
	}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey("expr", expression)); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	options = append(options, e.functionOptions()...)
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, compileError("expr", expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(cacheKey("expr", expression), program)
	}
	return program, nil
}

func (e *exprEvaluator) functionOptions() []exprlang.Option {
	if e.registry == nil {
		return nil
	}
	registry := e.registry
	options := []exprlang.Option{
		exprlang.Function("call", func(params ...any) (any, error) {
			if len(params) == 0 {
				return nil, fmt.Errorf("factory: call requires function name")
			}
			name, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("factory: call name must be string")
			}
			return registry.Call(name, params[1:]...)
		}),
	}
	for _, name := range registry.Names() {
		fn := name
		options = append(options, exprlang.Function(fn, func(params ...any) (any, error) {
			return registry.Call(fn, params...)
		}))
	}
	return options
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, runError("expr", r.expression, ctx.factoryLabel(), errRuleWithoutEvaluator)
	}
	ctx = ctx.withDefaults()
	if r.program == nil {
		return r.evaluator.Evaluate(ctx, r.expression)
	}
	result, err := exprlang.Run(r.program, r.evaluator.environment(ctx))
	if err != nil {
		return nil, runError("expr", r.expression, ctx.factoryLabel(), err)
	}
	return result, nil
}

func (e *exprEvaluator) environment(ctx RuleContext) map[string]any {
	env := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	if ctx.Factory != "" {
		env["factory"] = ctx.Factory
	}
	for key, value := range ctx.snapshotMap() {
		env[key] = value
	}
	return env
}
