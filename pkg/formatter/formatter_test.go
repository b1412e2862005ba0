package formatter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/minijs/pkg/ast"
	"github.com/thomasrohde/minijs/pkg/formatter"
	"github.com/thomasrohde/minijs/pkg/parser"
)

func format(t *testing.T, src string) string {
	t.Helper()
	prog, diags := parser.Parse(src, "test.js")
	require.Empty(t, diags)
	return formatter.Format(prog)
}

func TestFormatStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"assignment", "x=1;", "x = 1;\n"},
		{"print", `print   "hi" ;println x;`, "print \"hi\";\nprintln x;\n"},
		{"operators", "r=1+2*3>=4&&true||false;", "r = 1 + 2 * 3 >= 4 && true || false;\n"},
		{"parens kept", "r=(1+2)*3;", "r = (1 + 2) * 3;\n"},
		{"chained assignment", "a=b=3;", "a = b = 3;\n"},
		{"numbers normalised", "x = 007; y = 1.50;", "x = 7;\ny = 1.5;\n"},
		{"empty block", "{ }", "{}\n"},
		{"empty program", "// only a comment", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, format(t, tt.src))
		})
	}
}

func TestFormatIfElse(t *testing.T) {
	got := format(t, `a = 3; if (a >= 2) { print "a is big!"; } else if (a == 1) { } else { print a; }`)
	want := `a = 3;
if (a >= 2) {
  print "a is big!";
} else if (a == 1) {} else {
  print a;
}
`
	assert.Equal(t, want, got)
}

func TestFormatExpressionBranches(t *testing.T) {
	got := format(t, "if (ok) x = 1; else if (no) x = 2; else { x = 3; }")
	want := "if (ok) x = 1;\nelse if (no) x = 2;\nelse {\n  x = 3;\n}\n"
	assert.Equal(t, want, got)
}

func TestFormatLoops(t *testing.T) {
	got := format(t, "while(i<3){i=i+1; if (true) { println i; }} for(i=0;i<3;i=i+1){} for(;ok;){x=1;}")
	want := `while (i < 3) {
  i = i + 1;
  if (true) {
    println i;
  }
}
for (i = 0; i < 3; i = i + 1) {}
for (; ok;) {
  x = 1;
}
`
	assert.Equal(t, want, got)
}

func TestFormatIsIdempotent(t *testing.T) {
	src := `x = 1; while (x < 10) { if (x == 5) { println "five"; } else { print x; } x = x * 2; }`
	once := format(t, src)
	assert.Equal(t, once, format(t, once))
}

func TestFormatAddsParensForBuiltTrees(t *testing.T) {
	// (1 + 2) * 3 built without a ParenExpr node
	sum := &ast.BinaryExpr{Op: ast.OpAdd, Left: &ast.NumberLiteral{Text: "1"}, Right: &ast.NumberLiteral{Text: "2"}}
	prod := &ast.BinaryExpr{Op: ast.OpMul, Left: sum, Right: &ast.NumberLiteral{Text: "3"}}
	// 1 - (2 - 3)
	inner := &ast.BinaryExpr{Op: ast.OpSub, Left: &ast.NumberLiteral{Text: "2"}, Right: &ast.NumberLiteral{Text: "3"}}
	diff := &ast.BinaryExpr{Op: ast.OpSub, Left: &ast.NumberLiteral{Text: "1"}, Right: inner}

	prog := &ast.Program{Statements: []ast.Stmt{
		&ast.ExprStmt{Expr: prod},
		&ast.ExprStmt{Expr: diff},
	}}
	assert.Equal(t, "(1 + 2) * 3;\n1 - (2 - 3);\n", formatter.Format(prog))
}

func TestHasComments(t *testing.T) {
	assert.True(t, formatter.HasComments("x = 1; // note"))
	assert.True(t, formatter.HasComments("/* block */ x = 1;"))
	assert.False(t, formatter.HasComments("x = 4 / 2;"))
	assert.False(t, formatter.HasComments(`print "http://example.com";`))
}
