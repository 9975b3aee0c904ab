package formula

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/mohamedsillahkanu/icf-collect/pkg/utils"
)

// Engine evaluates calculation-field formulas against a record's values.
// Compiled programs are cached per expression string.
type Engine struct {
	programCache map[string]*vm.Program
	mu           sync.RWMutex
}

// NewEngine creates a new formula engine
func NewEngine() *Engine {
	return &Engine{
		programCache: make(map[string]*vm.Program),
	}
}

// Evaluate runs a formula with the record's field values as the environment.
// Field names in the formula resolve to the record's raw values.
func (e *Engine) Evaluate(formula string, record map[string]interface{}) (interface{}, error) {
	program, err := e.getProgram(formula)
	if err != nil {
		return nil, fmt.Errorf("failed to compile formula %q: %w", formula, err)
	}

	output, err := expr.Run(program, record)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate formula %q: %w", formula, err)
	}
	return output, nil
}

// EvaluateNumber evaluates a formula and coerces the result to float64
func (e *Engine) EvaluateNumber(formula string, record map[string]interface{}) (float64, error) {
	out, err := e.Evaluate(formula, record)
	if err != nil {
		return 0, err
	}
	return utils.ToFloat(out), nil
}

func (e *Engine) getProgram(formula string) (*vm.Program, error) {
	e.mu.RLock()
	if prog, ok := e.programCache[formula]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	// expr compiles against an untyped map env so field lookups stay dynamic
	program, err := expr.Compile(formula, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programCache[formula] = program
	e.mu.Unlock()

	return program, nil
}
