// Package formatter implements the minijs source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/minijs/pkg/ast"
)

const indent = "  "

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpOr:   1,
	ast.OpAnd:  2,
	ast.OpEqEq: 3, ast.OpNeq: 3,
	ast.OpGt: 4, ast.OpLt: 4, ast.OpGtEq: 4, ast.OpLtEq: 4,
	ast.OpAdd: 5, ast.OpSub: 5,
	ast.OpMul: 6, ast.OpDiv: 6,
}

// needsParens reports whether child must be wrapped to keep its meaning under
// parentOp. Parsed programs carry explicit ParenExpr nodes, so this only
// matters for trees built in code.
func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	switch c := child.(type) {
	case *ast.AssignExpr:
		return true
	case *ast.BinaryExpr:
		childPrec := precedence[c.Op]
		parentPrec := precedence[parentOp]
		if childPrec < parentPrec {
			return true
		}
		// Left-associativity: for same-precedence on right side, add parens
		return childPrec == parentPrec && isRight
	}
	return false
}

// Format pretty-prints a minijs AST back to source code.
func Format(program *ast.Program) string {
	if len(program.Statements) == 0 {
		return ""
	}
	lines := make([]string, len(program.Statements))
	for i, s := range program.Statements {
		lines[i] = formatStmt(s, 0)
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments checks if a source string contains // or /* */ comments.
// Format drops comments, so callers use this to warn before rewriting a file.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch c := source[i]; {
		case c == '"':
			inString = !inString
		case c == '\n':
			// strings cannot span lines
			inString = false
		case !inString && c == '/' && i+1 < len(source) && (source[i+1] == '/' || source[i+1] == '*'):
			return true
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.ExprStmt:
		return prefix + formatExpr(stmt.Expr) + ";"
	case *ast.PrintStmt:
		kw := "print "
		if stmt.Newline {
			kw = "println "
		}
		return prefix + kw + formatExpr(stmt.Expr) + ";"
	case *ast.Block:
		return prefix + formatBlock(stmt, depth)
	case *ast.IfStmt:
		return prefix + formatIf(stmt, depth)
	case *ast.WhileStmt:
		return prefix + "while (" + formatExpr(stmt.Cond) + ") " + formatBlock(stmt.Body, depth)
	case *ast.ForStmt:
		return prefix + "for (" + optExpr(stmt.Init) + "; " + formatExpr(stmt.Cond) + ";" +
			prefixed(" ", optExpr(stmt.Post)) + ") " + formatBlock(stmt.Body, depth)
	}
	return ""
}

// formatBlock renders a braced block; the opening brace continues the current line.
func formatBlock(b *ast.Block, depth int) string {
	if len(b.Statements) == 0 {
		return "{}"
	}
	lines := make([]string, len(b.Statements))
	for i, s := range b.Statements {
		lines[i] = formatStmt(s, depth+1)
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatIf(s *ast.IfStmt, depth int) string {
	var sb strings.Builder
	sb.WriteString("if (" + formatExpr(s.If.Cond) + ")")
	prevBlock := formatBranch(&sb, s.If, depth)

	next := func() {
		if prevBlock {
			sb.WriteString(" ")
		} else {
			sb.WriteString("\n" + strings.Repeat(indent, depth))
		}
	}

	for _, br := range s.ElseIfs {
		next()
		sb.WriteString("else if (" + formatExpr(br.Cond) + ")")
		prevBlock = formatBranch(&sb, br, depth)
	}
	if s.Else != nil {
		next()
		sb.WriteString("else")
		formatBranch(&sb, s.Else, depth)
	}
	return sb.String()
}

// formatBranch writes a branch body and reports whether it was a block.
func formatBranch(sb *strings.Builder, br *ast.Branch, depth int) bool {
	if br.Body != nil {
		sb.WriteString(" " + formatBlock(br.Body, depth))
		return true
	}
	sb.WriteString(" " + formatExpr(br.Expr) + ";")
	return false
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.NumberLiteral:
		return formatNumberLiteral(expr.Text)
	case *ast.StringLiteral:
		return expr.Text
	case *ast.BoolLiteral:
		return expr.Text
	case *ast.NullLiteral:
		return "null"
	case *ast.Identifier:
		return expr.Name
	case *ast.ParenExpr:
		return "(" + formatExpr(expr.Inner) + ")"
	case *ast.AssignExpr:
		return formatExpr(expr.Left) + " = " + formatExpr(expr.Right)
	case *ast.BinaryExpr:
		left := formatExpr(expr.Left)
		if needsParens(expr.Left, expr.Op, false) {
			left = "(" + left + ")"
		}
		right := formatExpr(expr.Right)
		if needsParens(expr.Right, expr.Op, true) {
			right = "(" + right + ")"
		}
		return left + " " + string(expr.Op) + " " + right
	}
	return ""
}

// formatNumberLiteral normalises leading zeros and trailing fractional zeros.
func formatNumberLiteral(text string) string {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func optExpr(e ast.Expr) string {
	if e == nil {
		return ""
	}
	return formatExpr(e)
}

func prefixed(p, s string) string {
	if s == "" {
		return ""
	}
	return p + s
}
