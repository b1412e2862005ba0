// Command minijs is the minijs interpreter CLI.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thomasrohde/minijs/internal/logging"
	"github.com/thomasrohde/minijs/pkg/config"
	"github.com/thomasrohde/minijs/pkg/diagnostics"
	"github.com/thomasrohde/minijs/pkg/evaluator"
	"github.com/thomasrohde/minijs/pkg/formatter"
	"github.com/thomasrohde/minijs/pkg/help"
	"github.com/thomasrohde/minijs/pkg/runtime"
)

// Set with -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const usage = "usage: minijs <file> [--pretty] [--strict] [--trace <file>] [--dump-scope]\n" +
	"              [--log-level <level>] [--log-file <path>] [--config <path>]\n" +
	"              [--max-iterations <n>] [--time-ms <n>] [--iterate-for]\n" +
	"       minijs check|fmt|trace|help|version ..."

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(a.run(os.Args[1:]))
}

func (a *app) run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, usage)
		return 1
	}

	switch args[0] {
	case "run":
		return a.cmdRun(args[1:])
	case "check":
		return a.cmdCheck(args[1:])
	case "fmt":
		return a.cmdFmt(args[1:])
	case "trace":
		return a.cmdTrace(args[1:])
	case "help", "--help", "-h":
		return a.cmdHelp(args[1:])
	case "version", "--version":
		fmt.Fprintf(a.stdout, "minijs version '%s' %s %s\n", Version, BuildDate, Commit)
		return 0
	default:
		return a.cmdRun(args)
	}
}

type runFlags struct {
	file          string
	pretty        bool
	strict        bool
	dumpScope     bool
	iterateFor    bool
	tracePath     string
	configPath    string
	logLevel      string
	logFile       string
	maxIterations *int64
	timeMs        *int64
}

func parseRunFlags(args []string) (*runFlags, error) {
	f := &runFlags{}
	var positional []string

	value := func(i *int) (string, error) {
		name := args[*i]
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		*i++
		return args[*i], nil
	}
	limit := func(i *int) (*int64, error) {
		name := args[*i]
		s, err := value(i)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", name, s)
		}
		return &n, nil
	}

	for i := 0; i < len(args); i++ {
		var err error
		switch args[i] {
		case "--pretty":
			f.pretty = true
		case "--strict":
			f.strict = true
		case "--dump-scope":
			f.dumpScope = true
		case "--iterate-for":
			f.iterateFor = true
		case "--trace":
			f.tracePath, err = value(&i)
		case "--config":
			f.configPath, err = value(&i)
		case "--log-level":
			f.logLevel, err = value(&i)
		case "--log-file":
			f.logFile, err = value(&i)
		case "--max-iterations":
			f.maxIterations, err = limit(&i)
		case "--time-ms":
			f.timeMs, err = limit(&i)
		default:
			if args[i] != "-" && strings.HasPrefix(args[i], "-") {
				return nil, fmt.Errorf("unknown option %s", args[i])
			}
			positional = append(positional, args[i])
		}
		if err != nil {
			return nil, err
		}
	}

	if len(positional) != 1 {
		return nil, fmt.Errorf("expected exactly one program file, got %d", len(positional))
	}
	f.file = positional[0]
	return f, nil
}

func (a *app) cmdRun(args []string) int {
	flags, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %s\n%s\n", err, usage)
		return 1
	}

	source, filename, exitCode := a.readSource(flags.file, flags.pretty)
	if exitCode != 0 {
		return exitCode
	}

	cfg, err := a.loadConfig(flags)
	if err != nil {
		a.printDiags([]diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "")}, flags.pretty)
		return 1
	}

	logger, closeLog := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Stderr: a.stderr,
	})
	defer closeLog()
	if cfg.Source != "" {
		logger.Debug("config loaded", "path", cfg.Source)
	}

	var out io.Writer = a.stdout
	if cfg.Output.Buffered {
		bw := bufio.NewWriter(a.stdout)
		defer bw.Flush()
		out = bw
	}

	opts := []runtime.Option{
		runtime.WithStdout(out),
		runtime.WithConfig(cfg),
		runtime.WithLogger(logger),
	}
	if flags.strict {
		opts = append(opts, runtime.WithValidation())
	}

	if flags.tracePath != "" {
		tw, err := newTraceWriter(flags.tracePath)
		if err != nil {
			diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot open trace file: %s", flags.tracePath), nil, "")
			a.printDiags([]diagnostics.Diagnostic{diag}, flags.pretty)
			return 1
		}
		defer func() {
			if err := tw.Close(); err != nil {
				logger.Warn("trace file incomplete", "path", flags.tracePath, "error", err)
			}
		}()
		opts = append(opts, runtime.WithTrace(tw.Write))
	}

	rt := runtime.New(opts...)
	result, execErr := rt.Run(context.Background(), source, filename)

	if execErr != nil {
		var diagErr *runtime.DiagnosticError
		var rtErr *evaluator.RuntimeError
		switch {
		case errors.As(execErr, &diagErr):
			a.printDiags(diagErr.Diagnostics, flags.pretty)
			return 2
		case errors.As(execErr, &rtErr):
			a.printDiags([]diagnostics.Diagnostic{rtErr.Diagnostic()}, flags.pretty)
			return diagnostics.ExitCode(rtErr.Code)
		default:
			fmt.Fprintln(a.stderr, execErr.Error())
			return 4
		}
	}

	if flags.dumpScope && result != nil {
		data, err := evaluator.ScopeToJSON(result.Scope)
		if err != nil {
			fmt.Fprintf(a.stderr, "error serializing scope: %s\n", err)
			return 4
		}
		fmt.Fprintln(out, string(data))
	}
	return 0
}

// loadConfig reads the config file and applies flag overrides.
func (a *app) loadConfig(flags *runFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		dir := "."
		if flags.file != "-" {
			dir = filepath.Dir(flags.file)
		}
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return nil, err
	}

	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.Log.File = flags.logFile
	}
	if flags.maxIterations != nil {
		cfg.Budget.MaxIterations = flags.maxIterations
	}
	if flags.timeMs != nil {
		cfg.Budget.TimeMs = flags.timeMs
	}
	if flags.iterateFor {
		cfg.ForLoop = config.ForLoopIterate
	}
	return cfg, cfg.Validate()
}

func (a *app) cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.stderr, "usage: minijs check <file> [--pretty]")
		return 1
	}

	source, filename, exitCode := a.readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		a.printDiags(diags, pretty)
		return 2
	}

	if pretty {
		fmt.Fprintln(a.stdout, "No errors found.")
	} else {
		fmt.Fprintln(a.stdout, "[]")
	}
	return 0
}

func (a *app) cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.stderr, "usage: minijs fmt <file> [--write]")
		return 1
	}

	source, filename, exitCode := a.readSource(file, false)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	formatted, fmtErr := rt.Format(source, filename)
	if fmtErr != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(fmtErr, &diagErr) {
			a.printDiags(diagErr.Diagnostics, false)
			return 2
		}
		fmt.Fprintln(a.stderr, fmtErr.Error())
		return 2
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(a.stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(a.stderr, "error writing file: %s\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprint(a.stdout, formatted)
	return 0
}

func (a *app) cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.stderr, "usage: minijs trace <file.jsonl> [--json|--text]")
		return 1
	}

	f, err := os.Open(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		a.printDiags([]diagnostics.Diagnostic{diag}, false)
		return 1
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s: %v", file, err), nil, "")
		a.printDiags([]diagnostics.Diagnostic{diag}, false)
		return 1
	}

	if textOutput {
		printTraceSummaryText(a.stdout, summary)
		return 0
	}
	b, _ := json.Marshal(summary)
	fmt.Fprintln(a.stdout, string(b))
	return 0
}

func (a *app) cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		if topic != "operators" {
			fmt.Fprintln(a.stderr, "error: --index is only supported for the operators topic (minijs help operators --index)")
			return 1
		}
		fmt.Fprint(a.stdout, help.OperatorIndex())
		return 0
	}

	if topic == "" {
		fmt.Fprint(a.stdout, help.QUICKREF)
		return 0
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(a.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return 1
	}
	fmt.Fprint(a.stdout, content)
	return 0
}

func (a *app) readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			fmt.Fprintf(a.stderr, "error reading stdin: %s\n", err)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		a.printDiags([]diagnostics.Diagnostic{diag}, pretty)
		return "", "", 1
	}
	return string(source), file, 0
}

func (a *app) printDiags(diags []diagnostics.Diagnostic, pretty bool) {
	fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics(diags, pretty))
}
