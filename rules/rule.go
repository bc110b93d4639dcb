package rules

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Rule is a boolean condition evaluated against a single tile.
type Rule struct {
	Name         string      // human-readable identifier
	ConditionSrc string      // expr source (preserved for serialization)
	program      *vm.Program // compiled bytecode
}

// Compile turns an expr condition into a Rule. The condition must evaluate
// to a bool against TileEnv.
func Compile(name, src string) (*Rule, error) {
	prog, err := expr.Compile(src, expr.Env(TileEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile rule %q: %w", name, err)
	}
	return &Rule{Name: name, ConditionSrc: src, program: prog}, nil
}

// Eval runs the rule. A runtime error counts as false so a broken rule
// blocks tiles instead of opening them.
func (r *Rule) Eval(env TileEnv) bool {
	result, err := vm.Run(r.program, env)
	if err != nil {
		slog.Warn("rule condition error", "rule", r.Name, "x", env.X, "y", env.Y, "error", err)
		return false
	}
	match, ok := result.(bool)
	return ok && match
}
