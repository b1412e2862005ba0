// Package runtime provides the top-level minijs runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/thomasrohde/minijs/pkg/ast"
	"github.com/thomasrohde/minijs/pkg/config"
	"github.com/thomasrohde/minijs/pkg/diagnostics"
	"github.com/thomasrohde/minijs/pkg/evaluator"
	"github.com/thomasrohde/minijs/pkg/formatter"
	"github.com/thomasrohde/minijs/pkg/lexer"
	"github.com/thomasrohde/minijs/pkg/parser"
	"github.com/thomasrohde/minijs/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	Value evaluator.Value
	Scope *evaluator.Scope
	Usage evaluator.Usage
}

// Runtime wires together all minijs components for program execution.
type Runtime struct {
	stdout     io.Writer
	runID      string
	trace      func(event evaluator.TraceEvent)
	budget     evaluator.Budget
	iterateFor bool
	validate   bool
	log        *slog.Logger
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdout sets the print output sink.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithBudget sets execution limits.
func WithBudget(b evaluator.Budget) Option {
	return func(rt *Runtime) {
		rt.budget = b
	}
}

// WithIterateFor runs for statements as C-style loops.
func WithIterateFor(on bool) Option {
	return func(rt *Runtime) {
		rt.iterateFor = on
	}
}

// WithValidation runs the static validator before executing.
func WithValidation() Option {
	return func(rt *Runtime) {
		rt.validate = true
	}
}

// WithLogger sets the logger for phase boundaries and evaluation.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.log = l
	}
}

// WithConfig applies the budget and for-loop settings of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		if cfg == nil {
			return
		}
		rt.budget = evaluator.Budget{
			TimeMs:        cfg.Budget.TimeMs,
			MaxIterations: cfg.Budget.MaxIterations,
		}
		rt.iterateFor = cfg.IterateFor()
	}
}

// New creates a new Runtime with the given options.
// By default output is discarded, no budget applies and validation is off.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdout: io.Discard,
		runID:  "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.log == nil {
		rt.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return rt
}

// Run parses and executes a minijs program against a fresh scope.
// The result is non-nil whenever execution started, even on error.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, err := rt.parse(source, filename)
	if err != nil {
		return nil, err
	}

	if rt.validate {
		if vDiags := validator.Validate(program); len(vDiags) > 0 {
			rt.log.Debug("validation failed", "file", filename, "diagnostics", len(vDiags))
			return nil, &DiagnosticError{Diagnostics: vDiags}
		}
		rt.log.Debug("validated", "file", filename)
	}

	result, err := evaluator.Execute(ctx, program, rt.buildExecOptions())
	if result == nil {
		return nil, err
	}
	rt.log.Debug("executed", "file", filename, "ok", err == nil,
		"statements", result.Usage.Statements, "prints", result.Usage.Prints)
	return &Result{Value: result.Value, Scope: result.Scope, Usage: result.Usage}, err
}

// Check parses and validates a minijs program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, err := rt.parse(source, filename)
	if err != nil {
		var de *DiagnosticError
		if errors.As(err, &de) {
			return de.Diagnostics
		}
		return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EParse, err.Error(), nil, "")}
	}
	return validator.Validate(program)
}

// Format parses and formats a minijs program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, err := rt.parse(source, filename)
	if err != nil {
		return "", err
	}
	return formatter.Format(program), nil
}

func (rt *Runtime) parse(source, filename string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		var le *lexer.LexError
		if errors.As(err, &le) {
			return nil, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{le.Diag}}
		}
		return nil, err
	}
	rt.log.Debug("lexed", "file", filename, "tokens", len(tokens))

	program, diags := parser.ParseTokens(tokens)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	rt.log.Debug("parsed", "file", filename, "statements", len(program.Statements))
	return program, nil
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions() evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Stdout:     rt.stdout,
		Trace:      rt.trace,
		RunID:      rt.runID,
		Budget:     rt.budget,
		IterateFor: rt.iterateFor,
		Logger:     rt.log,
	}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
