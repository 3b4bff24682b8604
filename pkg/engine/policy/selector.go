// Package policy compiles the optional instance selection rule.
package policy

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// Input is the view of an instance exposed to the selection expression.
type Input struct {
	ID      string
	Name    string
	State   string
	Type    string
	Region  string
	Account string
	Tags    map[string]string
}

func (in Input) vars() map[string]any {
	tags := in.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	return map[string]any{
		"id":            in.ID,
		"name":          in.Name,
		"state":         in.State,
		"instance_type": in.Type,
		"region":        in.Region,
		"account":       in.Account,
		"tags":          tags,
	}
}

// Selector decides which instances are synced. A nil Selector selects everything.
type Selector struct {
	expr string
	prg  cel.Program
}

// NewSelector compiles expr, e.g. `tags["Environment"] != "sandbox" && state == "running"`.
// Variables: id, name, state, instance_type, region, account, tags.
// An empty expression yields a nil Selector.
func NewSelector(expr string) (*Selector, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("state", cel.StringType),
		cel.Variable("instance_type", cel.StringType),
		cel.Variable("region", cel.StringType),
		cel.Variable("account", cel.StringType),
		cel.Variable("tags", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filter compilation error: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter must evaluate to bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filter program creation error: %w", err)
	}
	return &Selector{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (s *Selector) String() string {
	if s == nil {
		return ""
	}
	return s.expr
}

// Match evaluates the rule. An evaluation error reports true alongside the error
// so callers keep the instance.
func (s *Selector) Match(in Input) (bool, error) {
	if s == nil {
		return true, nil
	}
	out, _, err := s.prg.Eval(in.vars())
	if err != nil {
		return true, fmt.Errorf("filter evaluation failed for %s: %w", in.ID, err)
	}
	match, ok := out.Value().(bool)
	if !ok {
		return true, fmt.Errorf("filter returned %T for %s", out.Value(), in.ID)
	}
	return match, nil
}
