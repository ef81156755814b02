package factory

import (
	"reflect"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry layers registry over the fixture functions.
// Functions are reachable through call(name) and call(name, [args]).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.registry = e.registry.merged(registry)
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Every collapsed
// attribute is declared as a dyn variable.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{registry: FixtureFunctions()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, compileError("cel", expression, ctx.factoryLabel(), ErrEmptyExpression)
	}
	ctx = ctx.withDefaults()
	snapshot := snapshotAsMap(ctx)
	program, err := e.loadOrCompile(expression, snapshot)
	if err != nil {
		return nil, compileError("cel", expression, ctx.factoryLabel(), err)
	}
	out, _, err := program.program.Eval(e.activation(ctx, snapshot))
	if err != nil {
		return nil, runError("cel", expression, ctx.factoryLabel(), err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, compileError("cel", expression, "", ErrEmptyExpression)
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

// loadOrCompile keys cached programs by expression and declared variable set
// since CEL checks variables at compile time.
func (e *celEvaluator) loadOrCompile(expression string, snapshot map[string]any) (*celProgram, error) {
	variables := make([]string, 0, len(snapshot))
	for key := range snapshot {
		variables = append(variables, key)
	}
	sort.Strings(variables)
	key := cacheKey("cel", expression+"|"+strings.Join(variables, ","))

	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(variables)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(key, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(variables []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("factory", celgo.StringType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string",
				[]*celgo.Type{celgo.StringType},
				celgo.DynType,
				celgo.UnaryBinding(func(name ref.Val) ref.Val {
					return e.call(name, nil)
				}),
			),
			celgo.Overload("call_string_list",
				[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.BinaryBinding(func(name, args ref.Val) ref.Val {
					return e.call(name, args)
				}),
			),
		))
	}
	for _, key := range variables {
		switch key {
		case "now", "args", "metadata", "factory":
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx RuleContext, snapshot map[string]any) map[string]any {
	activation := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"factory":  ctx.Factory,
	}
	for key, value := range snapshot {
		switch key {
		case "now", "args", "metadata", "factory":
			continue
		}
		activation[key] = value
	}
	return activation
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, runError("cel", r.expression, ctx.factoryLabel(), errRuleWithoutEvaluator)
	}
	return r.evaluator.Evaluate(ctx, r.expression)
}

func snapshotAsMap(ctx RuleContext) map[string]any {
	if m := ctx.snapshotMap(); m != nil {
		return m
	}
	return map[string]any{}
}

var anySliceType = reflect.TypeOf([]any{})

func (e *celEvaluator) call(nameVal, argsVal ref.Val) ref.Val {
	if e.registry == nil {
		return types.NewErr("factory: function registry not configured")
	}
	name, ok := nameVal.Value().(string)
	if !ok {
		return types.NewErr("factory: call name must be string")
	}
	var args []any
	if argsVal != nil {
		native, err := argsVal.ConvertToNative(anySliceType)
		if err != nil {
			return types.NewErr("factory: call arguments: %v", err)
		}
		args, _ = native.([]any)
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
