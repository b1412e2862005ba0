// Package help holds the built-in minijs language reference.
package help

import (
	"fmt"
	"sort"
	"strings"
)

// Version is the language reference version shown by QUICKREF.
const Version = "v0.3"

// QUICKREF is printed by `minijs help` with no topic.
var QUICKREF = `minijs ` + Version + ` quick reference

  x = 1;                     assignment (yields the stored value)
  print expr;                write without newline
  println expr;              write followed by a newline
  if (c) { } else if (d) { } else { }
  while (c) { }
  for (init; cond; step) { }
  // line comment   /* block comment */

Values: number, string ("..."), boolean (true/false), null.
Conditions must be booleans; there is no truthiness.

Topics (minijs help <topic>):
  syntax       statements and expressions
  types        values and how they print
  operators    arithmetic, comparison and boolean operators
  scope        nested scopes and write-back
  flow         if, while and for
  diagnostics  error codes and exit statuses
  config       .minijs.yaml settings
  examples     small complete programs
`

// TopicList is the display order of topics.
var TopicList = []string{"syntax", "types", "operators", "scope", "flow", "diagnostics", "config", "examples"}

// Topics maps topic names to their text.
var Topics = map[string]string{
	"syntax": `SYNTAX

A program is a sequence of statements. Every simple statement ends with ';'.

  statement  = print | if | while | for | block | expr ";"
  print      = ("print" | "println") expr ";"
  block      = "{" statement* "}"
  expr       = assignment
  assignment = logic_or ( "=" assignment )?
  logic_or   = logic_and ( "||" logic_and )*
  logic_and  = equality ( "&&" equality )*
  equality   = relational ( ("==" | "!=") relational )*
  relational = additive ( (">" | "<" | ">=" | "<=") additive )*
  additive   = term ( ("+" | "-") term )*
  term       = primary ( ("*" | "/") primary )*
  primary    = number | string | "true" | "false" | "null" | identifier | "(" expr ")"

Strings are double-quoted, have no escapes and cannot span lines.
Numbers are decimal: 42, 3.5.
`,
	"types": `TYPES

  number      64-bit float. Whole numbers print without a fraction: 2, 2.5
  string      "text", printed without quotes
  boolean     true, false
  null        absence; evaluating null is an E_NULL error
  identifier  a name, resolved when used as an operand

Only number and boolean pairs can be compared with == and !=.
`,
	"operators": `OPERATORS (lowest to highest precedence)

  =             assignment, right-associative
  ||            boolean or, skips the right side when the left is true
  &&            boolean and, skips the right side when the left is false
  == !=         number/number or boolean/boolean
  > < >= <=     numbers only
  + -           numbers only
  * /           numbers only; x / 0 is +Inf or -Inf, 0 / 0 is NaN

Mixing types raises E_TYPE naming both operand types.
`,
	"scope": `SCOPE

The bodies of if, while, for and bare { } blocks run in a nested scope.

  - Reading a name sees every enclosing binding.
  - Assigning a name that already exists in an enclosing scope updates it.
  - Assigning a new name binds it in the nested scope only; it is gone
    once the block finishes.

  x = 1;
  if (true) { x = 2; y = 3; }
  println x;   // 2
  println y;   // E_SCOPE: y is not defined
`,
	"flow": `FLOW

if (cond) body [else if (cond) body]* [else body]
  Exactly one branch runs. A body is a { } block or a single "expr;".
  Each else-if condition is evaluated only when reached.

while (cond) { ... }
  One nested scope is shared by every iteration.

for (init; cond; step) { ... }
  Runs init once and the body once when cond is true. The step is not
  run. Set "for_loop: iterate" in .minijs.yaml for C-style looping.

Conditions must evaluate to a boolean (E_CONDITION otherwise).
`,
	"diagnostics": `DIAGNOSTICS

  E_LEX          invalid character or unterminated string/comment
  E_PARSE        source does not match the grammar
  E_SCOPE        identifier is not defined
  E_ASSIGN       assignment target is not an identifier
  E_CONDITION    condition is not a boolean
  E_TYPE         operand types do not fit the operator
  E_NULL         null was evaluated
  E_UNSUPPORTED  operator not implemented for these types
  E_BUDGET       time or iteration budget exceeded
  E_IO           file could not be read or output could not be written
  E_CONFIG       configuration file is invalid

Exit status: 0 ok, 1 usage/io/config, 2 lex/parse/check, 3 budget, 4 runtime.
`,
	"config": `CONFIG

minijs reads .minijs.yaml in the program's directory, or else
~/.minijs/config.yaml. Unset fields keep their defaults.

  log:
    level: none        # debug, info, warn, error, none
    format: text       # text or json
    file: ""           # default stderr
  budget:
    time_ms: 1000      # unset means unlimited
    max_iterations: 100000
  for_loop: once       # once or iterate
  output:
    buffered: true     # output is flushed after every print either way
`,
	"examples": `EXAMPLES

  a = 3;
  if (a >= 2) { print "a is big!"; } else { print a; }
  // a is big!

  x = 1; x = x + 1; println x;
  // 2

  a = true; b = false; println a && b;
  // false

  i = 0; total = 0;
  while (i < 5) { i = i + 1; total = total + i; }
  println total;
  // 15
`,
}

// MatchTopic finds a topic by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}

	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	}
	return "", "", fmt.Errorf("ambiguous help topic %q: matches %s", query, strings.Join(matches, ", "))
}

// operatorFamilies lists operators for OperatorIndex.
var operatorFamilies = map[string][]string{
	"arithmetic": {"+", "-", "*", "/"},
	"relational": {">", "<", ">=", "<="},
	"equality":   {"==", "!="},
	"boolean":    {"&&", "||"},
	"assignment": {"="},
}

// OperatorIndex returns a compact listing of operators by family.
func OperatorIndex() string {
	families := make([]string, 0, len(operatorFamilies))
	for f := range operatorFamilies {
		families = append(families, f)
	}
	sort.Strings(families)

	var sb strings.Builder
	total := 0
	for _, f := range families {
		ops := operatorFamilies[f]
		total += len(ops)
		fmt.Fprintf(&sb, "%-11s %s\n", f, strings.Join(ops, " "))
	}
	fmt.Fprintf(&sb, "Total: %d operators\n", total)
	return sb.String()
}
