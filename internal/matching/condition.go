package matching

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Condition is a compiled boolean expression, for example
//
//	body.count > 2 && body.items[0].id == "a"
//
// Variables come from the env passed to Eval; unknown names evaluate to nil.
type Condition struct {
	raw     string
	program *vm.Program
}

// CompileCondition compiles expression. The expression must yield a bool.
func CompileCondition(expression string) (*Condition, error) {
	program, err := expr.Compile(expression, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	return &Condition{raw: expression, program: program}, nil
}

// String returns the expression as written.
func (c *Condition) String() string {
	return c.raw
}

// Eval runs the condition against env.
func (c *Condition) Eval(env map[string]any) (bool, error) {
	out, err := expr.Run(c.program, env)
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", c.raw, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("eval %q: result %T is not a bool", c.raw, out)
	}
	return ok, nil
}
