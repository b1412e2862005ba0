// Package ast defines the minijs AST node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpGt   BinaryOp = ">"
	OpLt   BinaryOp = "<"
	OpGtEq BinaryOp = ">="
	OpLtEq BinaryOp = "<="
	OpEqEq BinaryOp = "=="
	OpNeq  BinaryOp = "!="
	OpOr   BinaryOp = "||"
	OpAnd  BinaryOp = "&&"
)

// IsArithmetic reports whether op is one of + - * /.
func (op BinaryOp) IsArithmetic() bool {
	return op == OpAdd || op == OpSub || op == OpMul || op == OpDiv
}

// IsRelational reports whether op is one of > < >= <=.
func (op BinaryOp) IsRelational() bool {
	return op == OpGt || op == OpLt || op == OpGtEq || op == OpLtEq
}

// IsEquality reports whether op is == or !=.
func (op BinaryOp) IsEquality() bool {
	return op == OpEqEq || op == OpNeq
}

// IsLogical reports whether op is || or &&.
func (op BinaryOp) IsLogical() bool {
	return op == OpOr || op == OpAnd
}

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

// NumberLiteral keeps the source text; the evaluator builds the Number value.
type NumberLiteral struct {
	Span Span
	Text string
}

func (n *NumberLiteral) Kind() string   { return "NumberLiteral" }
func (n *NumberLiteral) NodeSpan() Span { return n.Span }
func (n *NumberLiteral) exprNode()      {}

// StringLiteral keeps the quoted source text, delimiters included.
type StringLiteral struct {
	Span Span
	Text string
}

func (n *StringLiteral) Kind() string   { return "StringLiteral" }
func (n *StringLiteral) NodeSpan() Span { return n.Span }
func (n *StringLiteral) exprNode()      {}

type BoolLiteral struct {
	Span Span
	Text string // "true" or "false"
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}

type NullLiteral struct {
	Span Span
}

func (n *NullLiteral) Kind() string   { return "NullLiteral" }
func (n *NullLiteral) NodeSpan() Span { return n.Span }
func (n *NullLiteral) exprNode()      {}

// --- Identifiers ---

type Identifier struct {
	Span Span
	Name string
}

func (n *Identifier) Kind() string   { return "Identifier" }
func (n *Identifier) NodeSpan() Span { return n.Span }
func (n *Identifier) exprNode()      {}

// --- Compound Expressions ---

// ParenExpr is a parenthesised sub-expression. It is kept in the tree so the
// formatter can reproduce grouping.
type ParenExpr struct {
	Span  Span
	Inner Expr
}

func (n *ParenExpr) Kind() string   { return "ParenExpr" }
func (n *ParenExpr) NodeSpan() Span { return n.Span }
func (n *ParenExpr) exprNode()      {}

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

type AssignExpr struct {
	Span  Span
	Left  Expr
	Right Expr
}

func (n *AssignExpr) Kind() string   { return "AssignExpr" }
func (n *AssignExpr) NodeSpan() Span { return n.Span }
func (n *AssignExpr) exprNode()      {}

// --- Statements ---

// Block is an ordered statement sequence. Block bodies of if/while/for own one.
type Block struct {
	Span       Span
	Statements []Stmt
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) NodeSpan() Span { return n.Span }
func (n *Block) stmtNode()      {}

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

type PrintStmt struct {
	Span    Span
	Newline bool // println
	Expr    Expr
}

func (n *PrintStmt) Kind() string   { return "PrintStmt" }
func (n *PrintStmt) NodeSpan() Span { return n.Span }
func (n *PrintStmt) stmtNode()      {}

// Branch is one arm of an if chain. Exactly one of Body and Expr is set:
// Body for a braced block, Expr for a brace-less single expression.
type Branch struct {
	Span Span
	Cond Expr // nil for the else arm
	Body *Block
	Expr Expr
}

func (n *Branch) Kind() string   { return "Branch" }
func (n *Branch) NodeSpan() Span { return n.Span }

type IfStmt struct {
	Span    Span
	If      *Branch
	ElseIfs []*Branch
	Else    *Branch // optional
}

// Kind distinguishes the plain form from the chained form.
func (n *IfStmt) Kind() string {
	if len(n.ElseIfs) == 0 && n.Else == nil {
		return "IfStmt"
	}
	return "IfElseStmt"
}
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) stmtNode()      {}

type WhileStmt struct {
	Span Span
	Cond Expr
	Body *Block
}

func (n *WhileStmt) Kind() string   { return "WhileStmt" }
func (n *WhileStmt) NodeSpan() Span { return n.Span }
func (n *WhileStmt) stmtNode()      {}

type ForStmt struct {
	Span Span
	Init Expr // optional
	Cond Expr
	Post Expr // optional
	Body *Block
}

func (n *ForStmt) Kind() string   { return "ForStmt" }
func (n *ForStmt) NodeSpan() Span { return n.Span }
func (n *ForStmt) stmtNode()      {}

// --- Program ---

// Program is the root block handed over by the parser.
type Program struct {
	Span       Span
	Statements []Stmt
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }
