package authz

import (
	"fmt"
	"sort"

	"github.com/google/cel-go/cel"

	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

// Variables available to policy expressions.
const (
	VarClaims     = "claims"
	VarScopes     = "scopes"
	VarParams     = "params"
	VarQuery      = "query"
	VarProduction = "production"
)

// newEnvironment creates the CEL environment shared by every expression.
func newEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable(VarClaims, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable(VarScopes, cel.ListType(cel.StringType)),
		cel.Variable(VarParams, cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable(VarQuery, cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable(VarProduction, cel.BoolType),
	)
}

type expression struct {
	name    string
	source  string
	program cel.Program
	logger  observability.Logger
}

// ExpressionOption is a functional option for Expression.
type ExpressionOption func(*expression)

// WithExpressionName names the expression in unmet reasons and logs.
func WithExpressionName(name string) ExpressionOption {
	return func(e *expression) {
		e.name = name
	}
}

// WithExpressionLogger sets the logger used for evaluation errors.
func WithExpressionLogger(logger observability.Logger) ExpressionOption {
	return func(e *expression) {
		e.logger = logger
	}
}

// Expression compiles a CEL boolean expression into a Predicate. The
// expression sees the variables claims, scopes, params, query and
// production. params holds the route parameters and the wildcards of a
// ServeMux pattern. It is compiled once; an evaluation error counts as
// false.
func Expression(source string, opts ...ExpressionOption) (Predicate, error) {
	e := &expression{
		name:   source,
		source: source,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	env, err := newEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPolicy, e.name, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %s: expression must return bool, got %s",
			ErrInvalidPolicy, e.name, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPolicy, e.name, err)
	}
	e.program = program

	return e, nil
}

// MustExpression is like Expression but panics if the expression does not
// compile. It suits predicates declared in package-level variables.
func MustExpression(source string, opts ...ExpressionOption) Predicate {
	p, err := Expression(source, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (e *expression) Evaluate(in *Input) bool {
	scopes := in.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	query := map[string]string{}
	if in.Request != nil && in.Request.URL != nil {
		for k, v := range in.Request.URL.Query() {
			if len(v) > 0 {
				query[k] = v[0]
			}
		}
	}

	result, _, err := e.program.Eval(map[string]any{
		VarClaims:     in.Claims,
		VarScopes:     scopes,
		VarParams:     in.AllParams(),
		VarQuery:      query,
		VarProduction: in.IsProduction(),
	})
	if err != nil {
		e.logger.Warn("CEL evaluation error",
			observability.String("policy", e.name),
			observability.Error(err))
		in.Unmet("policy %q could not be evaluated", e.name)
		return false
	}

	if allowed, ok := result.Value().(bool); ok && allowed {
		return true
	}
	in.Unmet("policy %q denied the request", e.name)
	return false
}

// CompilePolicies compiles named CEL expressions, typically from
// configuration. Errors name the offending policy.
func CompilePolicies(policies map[string]string, opts ...ExpressionOption) (map[string]Predicate, error) {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)

	compiled := make(map[string]Predicate, len(policies))
	for _, name := range names {
		p, err := Expression(policies[name], append(opts, WithExpressionName(name))...)
		if err != nil {
			return nil, err
		}
		compiled[name] = p
	}
	return compiled, nil
}

// Policy looks up a compiled policy by name.
func Policy(policies map[string]Predicate, name string) (Predicate, error) {
	p, ok := policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
	}
	return p, nil
}
