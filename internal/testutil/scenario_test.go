package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/minijs/internal/testutil"
)

const sample = `args: [--pretty, main.js]
exit: 4
stdout: ""
stderr_contains: [E_SCOPE]
tags: [scope]
-- main.js --
print y;
-- .minijs.yaml --
for_loop: iterate
`

func TestParseScenario(t *testing.T) {
	s, err := testutil.ParseScenario("undefined", []byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "undefined", s.Name)
	assert.Equal(t, []string{"--pretty", "main.js"}, s.Args)
	assert.Equal(t, 4, s.Exit)
	require.NotNil(t, s.Stdout)
	assert.Equal(t, "", *s.Stdout)
	assert.Equal(t, []string{"E_SCOPE"}, s.StderrContains)
	assert.Equal(t, "print y;\n", string(s.Files["main.js"]))
	assert.Contains(t, s.Files, ".minijs.yaml")
}

func TestParseScenarioStdoutUnset(t *testing.T) {
	s, err := testutil.ParseScenario("x", []byte("args: [version]\n"))
	require.NoError(t, err)
	assert.Nil(t, s.Stdout)
	assert.Zero(t, s.Exit)
}

func TestParseScenarioErrors(t *testing.T) {
	_, err := testutil.ParseScenario("noargs", []byte("exit: 0\n-- main.js --\n"))
	assert.ErrorContains(t, err, "no args")

	_, err = testutil.ParseScenario("unknown", []byte("args: [a]\nexpect: 1\n"))
	assert.ErrorContains(t, err, "expect")

	_, err = testutil.ParseScenario("dup", []byte("args: [a]\n-- a --\n1\n-- a --\n2\n"))
	assert.ErrorContains(t, err, "duplicate")
}

func TestMaterialize(t *testing.T) {
	s, err := testutil.ParseScenario("undefined", []byte(sample))
	require.NoError(t, err)

	dir := t.TempDir()
	args, err := s.Materialize(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"--pretty", filepath.Join(dir, "main.js")}, args)

	data, err := os.ReadFile(filepath.Join(dir, ".minijs.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "for_loop: iterate\n", string(data))
}

func TestMaterializeExpandsWork(t *testing.T) {
	s, err := testutil.ParseScenario("trace", []byte("args: [--trace, $WORK/out.jsonl, main.js]\n-- main.js --\nx = 1;\n"))
	require.NoError(t, err)

	dir := t.TempDir()
	args, err := s.Materialize(dir)
	require.NoError(t, err)
	assert.Equal(t, dir+"/out.jsonl", args[1])
	assert.Equal(t, filepath.Join(dir, "main.js"), args[2])
}

func TestListAndLoadScenarios(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txtar"), []byte(sample), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txtar"), []byte("args: [version]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	paths, err := testutil.ListScenarios(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "a.txtar", filepath.Base(paths[0]))

	s, err := testutil.LoadScenario(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "b", s.Name)
}
