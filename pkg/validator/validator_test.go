package validator_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/minijs/pkg/diagnostics"
	"github.com/thomasrohde/minijs/pkg/parser"
	"github.com/thomasrohde/minijs/pkg/validator"
)

// helper parses source and validates, returning diagnostics from validation only.
// It fatals on parse errors so test cases focus on validator behavior.
func mustParseAndValidate(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	prog, parseErrs := parser.Parse(source, "test.js")
	if len(parseErrs) > 0 {
		t.Fatalf("unexpected parse error: %s", parseErrs[0].Message)
	}
	return validator.Validate(prog)
}

// assertNoDiags asserts zero diagnostics were produced.
func assertNoDiags(t *testing.T, diags []diagnostics.Diagnostic) {
	t.Helper()
	if len(diags) != 0 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		t.Errorf("expected no diagnostics, got %d:\n  %s", len(diags), strings.Join(msgs, "\n  "))
	}
}

// assertDiagCount asserts the expected number of diagnostics.
func assertDiagCount(t *testing.T, diags []diagnostics.Diagnostic, expected int) {
	t.Helper()
	if len(diags) != expected {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		t.Errorf("expected %d diagnostics, got %d:\n  %s", expected, len(diags), strings.Join(msgs, "\n  "))
	}
}

// assertHasCode asserts that at least one diagnostic with the given code exists.
func assertHasCode(t *testing.T, diags []diagnostics.Diagnostic, code string) {
	t.Helper()
	for _, d := range diags {
		if d.Code == code {
			return
		}
	}
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	t.Errorf("expected diagnostic code %s, got codes: %v", code, codes)
}

// ==========================================================================
// Valid programs (should produce zero diagnostics)
// ==========================================================================

func TestValid_Scenarios(t *testing.T) {
	sources := []string{
		`a = 3; if (a >= 2) { print "a is big!"; } else { print a; }`,
		`x = 1; x = x + 1; println x;`,
		`a = true; b = false; println a && b;`,
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			assertNoDiags(t, mustParseAndValidate(t, src))
		})
	}
}

func TestValid_ChainedAssignment(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, "a = b = 2; println a + b;"))
}

func TestValid_WriteBackVisibleAfterIf(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, "x = 0; if (true) { x = 1; } println x;"))
}

func TestValid_LoopBindingUsedOnLaterIteration(t *testing.T) {
	src := `
		i = 0;
		while (i < 3) {
			if (i == 0) { } else { print seen; }
			seen = i;
			i = i + 1;
		}
	`
	assertNoDiags(t, mustParseAndValidate(t, src))
}

func TestValid_ForLoop(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, "for (i = 0; i < 3; i = i + 1) { println i; }"))
}

func TestValid_BareIdentifierStatement(t *testing.T) {
	// not resolved at runtime
	assertNoDiags(t, mustParseAndValidate(t, "unknown;"))
}

func TestValid_ShortCircuitedOperand(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, "r = false && missing; q = true || 1;"))
}

func TestValid_BooleanEquality(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, "r = true == false; s = 1 != 2;"))
}

// ==========================================================================
// Error programs
// ==========================================================================

func TestError_UndefinedIdentifier(t *testing.T) {
	diags := mustParseAndValidate(t, "print y;")
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.EScope)
	if diags[0].Span == nil || diags[0].Span.StartCol != 7 {
		t.Errorf("expected span at column 7, got %+v", diags[0].Span)
	}
}

func TestError_UseBeforeAssignment(t *testing.T) {
	diags := mustParseAndValidate(t, "x = y + 1; y = 2;")
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.EScope)
}

func TestError_BindingDoesNotLeakFromIf(t *testing.T) {
	diags := mustParseAndValidate(t, "if (true) { inner = 1; } println inner;")
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.EScope)
}

func TestError_BindingDoesNotLeakFromLoop(t *testing.T) {
	diags := mustParseAndValidate(t, "for (i = 0; i < 1;) { } println i;")
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.EScope)
}

func TestError_LiteralCondition(t *testing.T) {
	tests := []string{
		"if (1) { }",
		`while ("x") { }`,
		"for (; 2 + 2;) { }",
		"if (true) { } else if (0) { }",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			diags := mustParseAndValidate(t, src)
			assertDiagCount(t, diags, 1)
			assertHasCode(t, diags, diagnostics.ECondition)
		})
	}
}

func TestError_AssignToNonIdentifier(t *testing.T) {
	tests := []string{"1 = 2;", `"a" = 2;`, "(1 + 2) = 3;", "true = false;"}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			diags := mustParseAndValidate(t, src)
			assertDiagCount(t, diags, 1)
			assertHasCode(t, diags, diagnostics.EAssign)
		})
	}
}

func TestError_LiteralTypeMismatch(t *testing.T) {
	tests := []struct {
		src  string
		code string
	}{
		{`r = 1 + "a";`, diagnostics.EType},
		{`r = true - 1;`, diagnostics.EType},
		{`r = "a" < "b";`, diagnostics.EType},
		{`r = (1 < 2) * 3;`, diagnostics.EType},
		{`r = 1 == true;`, diagnostics.EType},
		{`r = 1 && true;`, diagnostics.EType},
		{`r = true && "s";`, diagnostics.EType},
		{`r = "a" == "b";`, diagnostics.EUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			diags := mustParseAndValidate(t, tt.src)
			assertDiagCount(t, diags, 1)
			assertHasCode(t, diags, tt.code)
		})
	}
}

func TestError_NullLiteral(t *testing.T) {
	diags := mustParseAndValidate(t, "x = null;")
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.ENull)
}

func TestError_Multiple(t *testing.T) {
	diags := mustParseAndValidate(t, "print a; print b; 3 = 4;")
	assertDiagCount(t, diags, 3)
	assertHasCode(t, diags, diagnostics.EScope)
	assertHasCode(t, diags, diagnostics.EAssign)
}
