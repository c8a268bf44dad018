package services

import (
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
)

var newFieldExprEnv = func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("ctx", cel.MapType(cel.StringType, cel.StringType)))
}

var fieldExprProgramCache sync.Map

func evalFieldExpr(expr string, ctxMap map[string]string) (bool, error) {
	program, err := loadOrCompileFieldExpr(expr)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{"ctx": ctxMap})
	if err != nil {
		return false, err
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, types.NewConfigError("fieldperm: expr rule did not produce a bool")
	}
	return v, nil
}

func loadOrCompileFieldExpr(expr string) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, types.NewConfigError("fieldperm: empty expr rule")
	}
	if cached, ok := fieldExprProgramCache.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	env, err := newFieldExprEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, types.NewConfigError("fieldperm: invalid expr rule: " + issues.Err().Error())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, types.NewConfigError("fieldperm: expr rule must produce a bool")
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	fieldExprProgramCache.Store(expr, program)
	return program, nil
}
