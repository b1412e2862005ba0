// Package validator implements static checks of minijs programs.
//
// Every diagnostic reported here names an error the evaluator would raise if
// the offending code were reached. Code on the right of && and || is not
// scope-checked since short-circuiting may skip it.
package validator

import (
	"fmt"

	"github.com/thomasrohde/minijs/pkg/ast"
	"github.com/thomasrohde/minijs/pkg/diagnostics"
)

type scope struct {
	bindings map[string]bool
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bindings: make(map[string]bool), parent: parent}
}

func (s *scope) has(name string) bool {
	if s.bindings[name] {
		return true
	}
	if s.parent != nil {
		return s.parent.has(name)
	}
	return false
}

// add mirrors the evaluator's write-back: an existing binding anywhere on the
// chain is reused, otherwise the name is bound locally.
func (s *scope) add(name string) {
	if s.has(name) {
		return
	}
	s.bindings[name] = true
}

// staticType is the type of an expression when it is known without running it.
type staticType int

const (
	tUnknown staticType = iota
	tNumber
	tString
	tBoolean
)

func (t staticType) String() string {
	switch t {
	case tNumber:
		return "number"
	case tString:
		return "string"
	case tBoolean:
		return "boolean"
	}
	return "unknown"
}

type validator struct {
	diags []diagnostics.Diagnostic
	// skipScope is > 0 while inside a short-circuited operand.
	skipScope int
}

// Validate performs static analysis on a program and returns diagnostics.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{}
	v.validateStatements(program.Statements, newScope(nil))
	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, ""))
}

func (v *validator) validateStatements(stmts []ast.Stmt, sc *scope) {
	for _, stmt := range stmts {
		v.validateStmt(stmt, sc)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt, sc *scope) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		v.validateUnresolved(s.Expr, sc)

	case *ast.PrintStmt:
		v.validateExpr(s.Expr, sc)

	case *ast.Block:
		v.validateStatements(s.Statements, newScope(sc))

	case *ast.IfStmt:
		nested := newScope(sc)
		v.validateCondition("if", s.If.Cond, nested)
		v.validateBranch(s.If, nested)
		for _, br := range s.ElseIfs {
			v.validateCondition("else if", br.Cond, nested)
			v.validateBranch(br, nested)
		}
		if s.Else != nil {
			v.validateBranch(s.Else, nested)
		}

	case *ast.WhileStmt:
		nested := newScope(sc)
		// later iterations see names bound by earlier ones
		declareAssigned(s.Body.Statements, nested)
		v.validateCondition("while", s.Cond, nested)
		v.validateStatements(s.Body.Statements, nested)

	case *ast.ForStmt:
		nested := newScope(sc)
		if s.Init != nil {
			v.validateUnresolved(s.Init, nested)
		}
		declareAssigned(s.Body.Statements, nested)
		if s.Post != nil {
			declareAssignedExpr(s.Post, nested)
		}
		v.validateCondition("for", s.Cond, nested)
		v.validateStatements(s.Body.Statements, nested)
		if s.Post != nil {
			v.validateUnresolved(s.Post, nested)
		}
	}
}

// validateBranch checks a branch body. Branches share the if scope, so names
// bound in one branch stay visible to the checks of later branches; this can
// only hide errors, never invent them.
func (v *validator) validateBranch(br *ast.Branch, sc *scope) {
	if br.Expr != nil {
		v.validateUnresolved(br.Expr, sc)
		return
	}
	v.validateStatements(br.Body.Statements, sc)
}

func (v *validator) validateCondition(keyword string, cond ast.Expr, sc *scope) {
	t := v.validateExpr(cond, sc)
	if t == tNumber || t == tString {
		v.addDiag(diagnostics.ECondition,
			fmt.Sprintf("condition of '%s' must be a boolean, got %s", keyword, t), cond.NodeSpan())
	}
}

// validateUnresolved checks an expression whose own value is discarded or
// returned unresolved, so a bare identifier is not looked up.
func (v *validator) validateUnresolved(expr ast.Expr, sc *scope) {
	if _, ok := unparen(expr).(*ast.Identifier); ok {
		return
	}
	v.validateExpr(expr, sc)
}

// validateExpr checks expr as a resolved operand and returns its static type.
func (v *validator) validateExpr(expr ast.Expr, sc *scope) staticType {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return tNumber

	case *ast.StringLiteral:
		return tString

	case *ast.BoolLiteral:
		return tBoolean

	case *ast.NullLiteral:
		v.addDiag(diagnostics.ENull, "null cannot be evaluated", e.Span)
		return tUnknown

	case *ast.Identifier:
		if v.skipScope == 0 && !sc.has(e.Name) {
			v.addDiag(diagnostics.EScope, fmt.Sprintf("identifier '%s' is never assigned before use", e.Name), e.Span)
		}
		return tUnknown

	case *ast.ParenExpr:
		return v.validateExpr(e.Inner, sc)

	case *ast.AssignExpr:
		target := unparen(e.Left)
		id, ok := target.(*ast.Identifier)
		if !ok {
			v.addDiag(diagnostics.EAssign,
				fmt.Sprintf("cannot assign to %s, the left-hand side must be an identifier", describe(target)), e.Left.NodeSpan())
			v.validateExpr(e.Right, sc)
			return tUnknown
		}
		t := v.validateExpr(e.Right, sc)
		sc.add(id.Name)
		return t

	case *ast.BinaryExpr:
		return v.validateBinary(e, sc)
	}
	return tUnknown
}

func (v *validator) validateBinary(e *ast.BinaryExpr, sc *scope) staticType {
	left := v.validateExpr(e.Left, sc)

	if e.Op.IsLogical() {
		v.skipScope++
		right := v.validateExpr(e.Right, sc)
		v.skipScope--
		if left != tUnknown && left != tBoolean {
			v.addDiag(diagnostics.EType,
				fmt.Sprintf("operator '%s' requires two booleans, got %s on the left", e.Op, left), e.Span)
		} else if left == tBoolean && right != tUnknown && right != tBoolean && !shortCircuits(e) {
			v.addDiag(diagnostics.EType,
				fmt.Sprintf("operator '%s' requires two booleans, got %s and %s", e.Op, left, right), e.Span)
		}
		return tBoolean
	}

	right := v.validateExpr(e.Right, sc)

	switch {
	case e.Op.IsArithmetic() || e.Op.IsRelational():
		if (left != tUnknown && left != tNumber) || (right != tUnknown && right != tNumber) {
			v.addDiag(diagnostics.EType,
				fmt.Sprintf("operator '%s' requires two numbers, got %s and %s", e.Op, left, right), e.Span)
		}
		if e.Op.IsArithmetic() {
			return tNumber
		}
		return tBoolean

	case e.Op.IsEquality():
		if left != tUnknown && right != tUnknown {
			if left != right {
				v.addDiag(diagnostics.EType,
					fmt.Sprintf("operator '%s' cannot compare %s and %s", e.Op, left, right), e.Span)
			} else if left == tString {
				v.addDiag(diagnostics.EUnsupported,
					fmt.Sprintf("operator '%s' not implemented for string and string", e.Op), e.Span)
			}
		}
		return tBoolean
	}
	return tUnknown
}

// shortCircuits reports whether the left operand is a literal that makes the
// evaluator skip the right operand.
func shortCircuits(e *ast.BinaryExpr) bool {
	lit, ok := unparen(e.Left).(*ast.BoolLiteral)
	if !ok {
		return false
	}
	return (e.Op == ast.OpOr && lit.Text == "true") || (e.Op == ast.OpAnd && lit.Text == "false")
}

func unparen(expr ast.Expr) ast.Expr {
	for {
		p, ok := expr.(*ast.ParenExpr)
		if !ok {
			return expr
		}
		expr = p.Inner
	}
}

func describe(expr ast.Expr) string {
	switch expr.(type) {
	case *ast.NumberLiteral:
		return "a number"
	case *ast.StringLiteral:
		return "a string"
	case *ast.BoolLiteral:
		return "a boolean"
	case *ast.NullLiteral:
		return "null"
	case *ast.BinaryExpr:
		return "an operator expression"
	case *ast.AssignExpr:
		return "an assignment"
	}
	return "an expression"
}

// declareAssigned pre-binds every name assigned anywhere in stmts.
func declareAssigned(stmts []ast.Stmt, sc *scope) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.ExprStmt:
			declareAssignedExpr(s.Expr, sc)
		case *ast.PrintStmt:
			declareAssignedExpr(s.Expr, sc)
		case *ast.Block:
			declareAssigned(s.Statements, sc)
		case *ast.IfStmt:
			for _, br := range append([]*ast.Branch{s.If, s.Else}, s.ElseIfs...) {
				if br == nil {
					continue
				}
				if br.Cond != nil {
					declareAssignedExpr(br.Cond, sc)
				}
				if br.Expr != nil {
					declareAssignedExpr(br.Expr, sc)
				} else {
					declareAssigned(br.Body.Statements, sc)
				}
			}
		case *ast.WhileStmt:
			declareAssignedExpr(s.Cond, sc)
			declareAssigned(s.Body.Statements, sc)
		case *ast.ForStmt:
			for _, e := range []ast.Expr{s.Init, s.Cond, s.Post} {
				if e != nil {
					declareAssignedExpr(e, sc)
				}
			}
			declareAssigned(s.Body.Statements, sc)
		}
	}
}

func declareAssignedExpr(expr ast.Expr, sc *scope) {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		declareAssignedExpr(e.Inner, sc)
	case *ast.BinaryExpr:
		declareAssignedExpr(e.Left, sc)
		declareAssignedExpr(e.Right, sc)
	case *ast.AssignExpr:
		if id, ok := unparen(e.Left).(*ast.Identifier); ok {
			sc.add(id.Name)
		}
		declareAssignedExpr(e.Right, sc)
	}
}
