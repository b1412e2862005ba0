package evaluator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/thomasrohde/minijs/pkg/ast"
	"github.com/thomasrohde/minijs/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart       TraceEventType = "run_start"
	TraceRunEnd         TraceEventType = "run_end"
	TraceStmtStart      TraceEventType = "stmt_start"
	TraceStmtEnd        TraceEventType = "stmt_end"
	TraceScopeEnter     TraceEventType = "scope_enter"
	TraceScopeExit      TraceEventType = "scope_exit"
	TraceLoopStart      TraceEventType = "loop_start"
	TraceLoopEnd        TraceEventType = "loop_end"
	TracePrint          TraceEventType = "print"
	TraceBudgetExceeded TraceEventType = "budget_exceeded"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	// Stdout receives print output. It is flushed after every print when it
	// implements Flush() error. Nil discards output.
	Stdout io.Writer
	Trace  func(event TraceEvent)
	RunID  string
	Budget Budget
	// IterateFor runs for statements as C-style loops instead of a single
	// guarded execution of the body.
	IterateFor bool
	Logger     *slog.Logger
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	// Value is the value of the last top-level statement.
	Value Value
	// Scope is the root scope after the run.
	Scope *Scope
	Usage Usage
}

// RuntimeError represents a fatal error during evaluation.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

// at attaches span to err when it is a RuntimeError without a location.
func at(err error, span ast.Span) error {
	if re, ok := err.(*RuntimeError); ok && re.Span == nil {
		re.Span = &span
	}
	return err
}

type flusher interface {
	Flush() error
}

type evaluator struct {
	ctx    context.Context
	opts   ExecOptions
	out    io.Writer
	log    *slog.Logger
	budget Budget
	usage  Usage
	start  time.Time
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span) {
	ev.emitWithData(event, span, nil)
}

func (ev *evaluator) emitWithData(event TraceEventType, span *ast.Span, data map[string]any) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// Execute runs a program against a fresh empty scope.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	return ExecuteIn(ctx, program, NewScope(), opts)
}

// ExecuteIn runs a program against an existing root scope.
func ExecuteIn(ctx context.Context, program *ast.Program, scope *Scope, opts ExecOptions) (*ExecResult, error) {
	ev := &evaluator{
		ctx:    ctx,
		opts:   opts,
		out:    opts.Stdout,
		log:    opts.Logger,
		budget: opts.Budget,
		start:  time.Now(),
	}
	if ev.out == nil {
		ev.out = io.Discard
	}
	if ev.log == nil {
		ev.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Set up context timeout for time budget
	if ev.budget.TimeMs != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*ev.budget.TimeMs)*time.Millisecond)
		defer cancel()
		ev.ctx = ctx
	}

	span := program.Span
	ev.emit(TraceRunStart, &span)
	ev.log.Debug("execution started", "run_id", opts.RunID, "statements", len(program.Statements))

	val, err := ev.execStatements(program.Statements, scope)

	ev.usage.ElapsedMs = time.Since(ev.start).Milliseconds()
	ev.emitWithData(TraceRunEnd, &span, map[string]any{
		"ok":         err == nil,
		"statements": ev.usage.Statements,
		"iterations": ev.usage.Iterations,
		"prints":     ev.usage.Prints,
	})
	ev.log.Debug("execution finished", "run_id", opts.RunID, "ok", err == nil, "elapsed_ms", ev.usage.ElapsedMs)

	res := &ExecResult{Scope: scope, Usage: ev.usage}
	if err != nil {
		return res, err
	}
	res.Value = val
	return res, nil
}

// execStatements evaluates stmts in order in the same scope.
func (ev *evaluator) execStatements(stmts []ast.Stmt, scope *Scope) (Value, error) {
	var lastVal Value = NewNull()

	for _, stmt := range stmts {
		if err := ev.checkTimeBudget(); err != nil {
			return nil, err
		}

		span := stmt.NodeSpan()
		ev.emit(TraceStmtStart, &span)
		ev.usage.Statements++

		val, err := ev.evalStmt(stmt, scope)
		if err != nil {
			return nil, err
		}
		lastVal = val

		ev.emit(TraceStmtEnd, &span)
	}

	return lastVal, nil
}

func (ev *evaluator) evalStmt(stmt ast.Stmt, scope *Scope) (Value, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		if _, err := ev.evalExpr(s.Expr, scope); err != nil {
			return nil, err
		}
		return NewNull(), nil

	case *ast.PrintStmt:
		return ev.evalPrint(s, scope)

	case *ast.Block:
		nested := ev.enterScope(scope, s.Span)
		defer ev.exitScope(nested, s.Span)
		if _, err := ev.execStatements(s.Statements, nested); err != nil {
			return nil, err
		}
		return NewNull(), nil

	case *ast.IfStmt:
		return ev.evalIf(s, scope)

	case *ast.WhileStmt:
		return ev.evalWhile(s, scope)

	case *ast.ForStmt:
		return ev.evalFor(s, scope)

	default:
		span := stmt.NodeSpan()
		return nil, &RuntimeError{
			Code:    diagnostics.EUnsupported,
			Message: fmt.Sprintf("unsupported statement type: %T", stmt),
			Span:    &span,
		}
	}
}

// evalExpr evaluates expr without resolving a resulting Identifier.
func (ev *evaluator) evalExpr(expr ast.Expr, scope *Scope) (Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		n, err := NumberFromLiteral(e.Text)
		if err != nil {
			return nil, at(err, e.Span)
		}
		return n, nil

	case *ast.StringLiteral:
		return StringFromLiteral(e.Text), nil

	case *ast.BoolLiteral:
		b, err := BooleanFromLiteral(e.Text)
		if err != nil {
			return nil, at(err, e.Span)
		}
		return b, nil

	case *ast.NullLiteral:
		span := e.Span
		return nil, &RuntimeError{
			Code:    diagnostics.ENull,
			Message: "cannot evaluate null: it has no value",
			Span:    &span,
		}

	case *ast.Identifier:
		return NewIdentifier(e.Name), nil

	case *ast.ParenExpr:
		return ev.evalExpr(e.Inner, scope)

	case *ast.BinaryExpr:
		return ev.evalBinary(e, scope)

	case *ast.AssignExpr:
		return ev.evalAssign(e, scope)

	default:
		span := expr.NodeSpan()
		return nil, &RuntimeError{
			Code:    diagnostics.EUnsupported,
			Message: fmt.Sprintf("unsupported expression type: %T", expr),
			Span:    &span,
		}
	}
}

// evalResolved evaluates expr and resolves an Identifier result through scope.
func (ev *evaluator) evalResolved(expr ast.Expr, scope *Scope) (Value, error) {
	v, err := ev.evalExpr(expr, scope)
	if err != nil {
		return nil, err
	}
	return resolve(v, scope, expr.NodeSpan())
}

func resolve(v Value, scope *Scope, span ast.Span) (Value, error) {
	id, ok := v.(Identifier)
	if !ok {
		return v, nil
	}
	bound, err := scope.Lookup(id.Name)
	if err != nil {
		return nil, at(err, span)
	}
	return bound, nil
}

func (ev *evaluator) evalBinary(e *ast.BinaryExpr, scope *Scope) (Value, error) {
	left, err := ev.evalResolved(e.Left, scope)
	if err != nil {
		return nil, err
	}

	if e.Op.IsLogical() {
		return ev.evalLogical(e, left, scope)
	}

	right, err := ev.evalResolved(e.Right, scope)
	if err != nil {
		return nil, err
	}

	span := e.Span

	switch {
	case e.Op.IsArithmetic() || e.Op.IsRelational():
		lNum, lOk := left.(Number)
		rNum, rOk := right.(Number)
		if !lOk || !rOk {
			return nil, &RuntimeError{
				Code:    diagnostics.EType,
				Message: fmt.Sprintf("operator '%s' requires two numbers, got %s and %s", e.Op, left.Type(), right.Type()),
				Span:    &span,
			}
		}
		switch e.Op {
		case ast.OpAdd:
			return lNum.Add(rNum), nil
		case ast.OpSub:
			return lNum.Minus(rNum), nil
		case ast.OpMul:
			return lNum.Multiply(rNum), nil
		case ast.OpDiv:
			return lNum.Divide(rNum), nil
		case ast.OpGt:
			return lNum.GreaterThan(rNum), nil
		case ast.OpLt:
			return lNum.LessThan(rNum), nil
		case ast.OpGtEq:
			return lNum.GreaterOrEqual(rNum), nil
		case ast.OpLtEq:
			return lNum.LessOrEqual(rNum), nil
		}

	case e.Op.IsEquality():
		if left.Type() != right.Type() {
			return nil, &RuntimeError{
				Code:    diagnostics.EType,
				Message: fmt.Sprintf("operator '%s' cannot compare %s and %s", e.Op, left.Type(), right.Type()),
				Span:    &span,
			}
		}
		switch l := left.(type) {
		case Number:
			r := right.(Number)
			if e.Op == ast.OpEqEq {
				return l.EqualTo(r), nil
			}
			return l.NotEqualTo(r), nil
		case Boolean:
			r := right.(Boolean)
			if e.Op == ast.OpEqEq {
				return l.EqualTo(r), nil
			}
			return l.NotEqualTo(r), nil
		}
	}

	return nil, &RuntimeError{
		Code:    diagnostics.EUnsupported,
		Message: fmt.Sprintf("operator '%s' not implemented for %s and %s", e.Op, left.Type(), right.Type()),
		Span:    &span,
	}
}

// evalLogical short-circuits: the right operand of || is skipped when the
// left is true, and the right operand of && is skipped when the left is false.
func (ev *evaluator) evalLogical(e *ast.BinaryExpr, left Value, scope *Scope) (Value, error) {
	span := e.Span
	lBool, ok := left.(Boolean)
	if !ok {
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("operator '%s' requires two booleans, got %s on the left", e.Op, left.Type()),
			Span:    &span,
		}
	}
	if e.Op == ast.OpOr && lBool.Value {
		return lBool, nil
	}
	if e.Op == ast.OpAnd && !lBool.Value {
		return lBool, nil
	}

	right, err := ev.evalResolved(e.Right, scope)
	if err != nil {
		return nil, err
	}
	rBool, ok := right.(Boolean)
	if !ok {
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("operator '%s' requires two booleans, got %s and %s", e.Op, left.Type(), right.Type()),
			Span:    &span,
		}
	}
	if e.Op == ast.OpOr {
		return lBool.Or(rBool), nil
	}
	return lBool.And(rBool), nil
}

func (ev *evaluator) evalAssign(e *ast.AssignExpr, scope *Scope) (Value, error) {
	target, err := ev.evalExpr(e.Left, scope)
	if err != nil {
		return nil, err
	}
	id, ok := target.(Identifier)
	if !ok {
		span := e.Left.NodeSpan()
		return nil, &RuntimeError{
			Code:    diagnostics.EAssign,
			Message: fmt.Sprintf("cannot assign to a %s, the left-hand side must be an identifier", target.Type()),
			Span:    &span,
		}
	}

	val, err := ev.evalResolved(e.Right, scope)
	if err != nil {
		return nil, err
	}
	scope.Add(id.Name, val)
	return val, nil
}

func (ev *evaluator) evalPrint(s *ast.PrintStmt, scope *Scope) (Value, error) {
	val, err := ev.evalResolved(s.Expr, scope)
	if err != nil {
		return nil, err
	}

	text := val.String()
	if s.Newline {
		text += "\n"
	}

	span := s.Span
	n, err := io.WriteString(ev.out, text)
	ev.usage.BytesWritten += int64(n)
	if err == nil {
		if f, ok := ev.out.(flusher); ok {
			err = f.Flush()
		}
	}
	if err != nil {
		return nil, &RuntimeError{
			Code:    diagnostics.EIO,
			Message: fmt.Sprintf("failed to write output: %v", err),
			Span:    &span,
		}
	}
	ev.usage.Prints++
	ev.emitWithData(TracePrint, &span, map[string]any{"text": text})

	return NewNull(), nil
}

// condition evaluates a guard that must be a Boolean.
func (ev *evaluator) condition(keyword string, expr ast.Expr, scope *Scope) (bool, error) {
	val, err := ev.evalResolved(expr, scope)
	if err != nil {
		return false, err
	}
	b, ok := val.(Boolean)
	if !ok {
		span := expr.NodeSpan()
		return false, &RuntimeError{
			Code:    diagnostics.ECondition,
			Message: fmt.Sprintf("condition of '%s' must be a boolean, got %s", keyword, val.Type()),
			Span:    &span,
		}
	}
	return b.Value, nil
}

func (ev *evaluator) enterScope(scope *Scope, span ast.Span) *Scope {
	nested := scope.Nested()
	ev.emitWithData(TraceScopeEnter, &span, map[string]any{"depth": nested.Depth()})
	return nested
}

func (ev *evaluator) exitScope(scope *Scope, span ast.Span) {
	ev.emitWithData(TraceScopeExit, &span, map[string]any{"depth": scope.Depth()})
}

func (ev *evaluator) evalIf(s *ast.IfStmt, scope *Scope) (Value, error) {
	nested := ev.enterScope(scope, s.Span)
	defer ev.exitScope(nested, s.Span)

	ok, err := ev.condition("if", s.If.Cond, nested)
	if err != nil {
		return nil, err
	}
	if ok {
		return ev.evalBranch(s.If, nested)
	}

	for _, br := range s.ElseIfs {
		ok, err := ev.condition("else if", br.Cond, nested)
		if err != nil {
			return nil, err
		}
		if ok {
			return ev.evalBranch(br, nested)
		}
	}

	if s.Else != nil {
		return ev.evalBranch(s.Else, nested)
	}
	return NewNull(), nil
}

// evalBranch runs a chosen branch. An expression branch yields its value;
// a block branch yields Null.
func (ev *evaluator) evalBranch(br *ast.Branch, scope *Scope) (Value, error) {
	if br.Expr != nil {
		return ev.evalExpr(br.Expr, scope)
	}
	if _, err := ev.execStatements(br.Body.Statements, scope); err != nil {
		return nil, err
	}
	return NewNull(), nil
}

func (ev *evaluator) evalWhile(s *ast.WhileStmt, scope *Scope) (Value, error) {
	nested := ev.enterScope(scope, s.Span)
	defer ev.exitScope(nested, s.Span)

	span := s.Span
	ev.emitWithData(TraceLoopStart, &span, map[string]any{"kind": "while"})

	var iterations int64
	for {
		if err := ev.checkTimeBudget(); err != nil {
			return nil, err
		}
		ok, err := ev.condition("while", s.Cond, nested)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := ev.countIteration(); err != nil {
			return nil, at(err, span)
		}
		iterations++
		if _, err := ev.execStatements(s.Body.Statements, nested); err != nil {
			return nil, err
		}
	}

	ev.emitWithData(TraceLoopEnd, &span, map[string]any{"kind": "while", "iterations": iterations})
	return NewNull(), nil
}

// evalFor runs init once and the body at most once when the condition holds.
// With IterateFor the step clause runs after each body and the condition is
// re-checked, giving a C-style loop.
func (ev *evaluator) evalFor(s *ast.ForStmt, scope *Scope) (Value, error) {
	nested := ev.enterScope(scope, s.Span)
	defer ev.exitScope(nested, s.Span)

	span := s.Span
	ev.emitWithData(TraceLoopStart, &span, map[string]any{"kind": "for", "iterate": ev.opts.IterateFor})

	if s.Init != nil {
		if _, err := ev.evalExpr(s.Init, nested); err != nil {
			return nil, err
		}
	}

	var iterations int64
	for {
		if err := ev.checkTimeBudget(); err != nil {
			return nil, err
		}
		ok, err := ev.condition("for", s.Cond, nested)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := ev.countIteration(); err != nil {
			return nil, at(err, span)
		}
		iterations++
		if _, err := ev.execStatements(s.Body.Statements, nested); err != nil {
			return nil, err
		}
		if !ev.opts.IterateFor {
			break
		}
		if s.Post != nil {
			if _, err := ev.evalExpr(s.Post, nested); err != nil {
				return nil, err
			}
		}
	}

	ev.emitWithData(TraceLoopEnd, &span, map[string]any{"kind": "for", "iterations": iterations})
	return NewNull(), nil
}
