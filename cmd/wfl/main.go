package main

import (
	"fmt"
	"os"

	"github.com/logbie/wfl-sub001/internal/debugreport"
	"github.com/logbie/wfl-sub001/internal/diagnostic"
	"github.com/logbie/wfl-sub001/internal/interp"
	"github.com/logbie/wfl-sub001/internal/lexer"
	"github.com/logbie/wfl-sub001/internal/merger"
	"github.com/logbie/wfl-sub001/internal/parser"
	"github.com/logbie/wfl-sub001/internal/sema"
	"github.com/logbie/wfl-sub001/internal/source"
	"github.com/logbie/wfl-sub001/internal/types"
	"github.com/logbie/wfl-sub001/internal/value"
	"github.com/logbie/wfl-sub001/internal/wflcfg"
	"github.com/logbie/wfl-sub001/internal/wflerr"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string
	var reportPath string

	rootCmd := &cobra.Command{
		Use:           "wfl <file>",
		Short:         "Run a WFL script",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exitCode, err := run(args[0], configPath, reportPath)
			if err != nil {
				return err
			}
			if exitCode != 0 {
				os.Exit(exitCode)
			}
			return nil
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a wflcfg file")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "Path to write a debug report on failure (defaults to <file>.debug.txt)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wfl: %v\n", err)
		os.Exit(1)
	}
}

func run(path, configPath, reportPath string) (int, error) {
	cfg := wflcfg.Default()
	if configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			return 0, wflerr.Wrap(wflerr.CategoryConfigLoad, "opening "+configPath, err)
		}
		defer f.Close()
		cfg, err = wflcfg.Load(f)
		if err != nil {
			return 0, wflerr.Wrap(wflerr.CategoryConfigLoad, "parsing "+configPath, err)
		}
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return 0, wflerr.Wrap(wflerr.CategorySourceRead, "reading "+path, err).WithContext("path", path)
	}

	if cfg.PatternCachePath != "" {
		if cached, err := os.ReadFile(cfg.PatternCachePath); err == nil {
			if err := interp.LoadPatternCache(cached); err != nil {
				fmt.Fprintf(os.Stderr, "wfl: discarding unreadable pattern cache at %s: %v\n", cfg.PatternCachePath, err)
			}
		} else if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "wfl: reading pattern cache at %s: %v\n", cfg.PatternCachePath, err)
		}
		defer func() {
			dumped, err := interp.DumpPatternCache()
			if err != nil {
				fmt.Fprintf(os.Stderr, "wfl: dumping pattern cache: %v\n", err)
				return
			}
			if err := os.WriteFile(cfg.PatternCachePath, dumped, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "wfl: writing pattern cache to %s: %v\n", cfg.PatternCachePath, err)
			}
		}()
	}

	files := source.NewRegistry()
	file := files.Add(path, string(contents))
	reporter := diagnostic.NewReporter(files)

	lx := lexer.New(file.ID, string(contents))
	toks := lx.Lex()
	toks = merger.Merge(toks)

	prog, diags := parser.Parse(toks, file.ID)
	if len(diags) > 0 {
		fmt.Fprint(os.Stderr, reporter.RenderAll(diags))
		return 1, nil
	}

	diags = sema.Analyze(prog)
	if hasErrors(diags) {
		fmt.Fprint(os.Stderr, reporter.RenderAll(diags))
		return 1, nil
	}

	diags = types.Check(prog)
	if hasErrors(diags) {
		fmt.Fprint(os.Stderr, reporter.RenderAll(diags))
		return 1, nil
	}

	in := interp.New(interp.Config{
		TimeoutSeconds:    cfg.TimeoutSeconds,
		MaxLoopIterations: cfg.MaxLoopIterations,
	})
	defer in.Close()

	runErr := in.Run(prog)
	if runErr == nil {
		return 0, nil
	}

	diag, ok := interp.AsDiagnostic(runErr)
	if !ok {
		return 0, runErr
	}
	fmt.Fprint(os.Stderr, reporter.Render(diag))
	fmt.Fprintln(os.Stderr)

	if cfg.DebugReportEnabled {
		if err := writeDebugReport(files, diag, in.FaultFrames(), reportPath, path); err != nil {
			reportErr := wflerr.Wrap(wflerr.CategoryCacheIO, "writing debug report", err)
			fmt.Fprintf(os.Stderr, "wfl: %v\n", reportErr)
		}
	}
	return 1, nil
}

func hasErrors(diags []*diagnostic.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == diagnostic.SeverityError {
			return true
		}
	}
	return false
}

func writeDebugReport(files *source.Registry, diag *diagnostic.Diagnostic, faultFrames []*value.CallFrame, reportPath, scriptPath string) error {
	if reportPath == "" {
		reportPath = scriptPath + ".debug.txt"
	}

	frames := make([]debugreport.Frame, len(faultFrames))
	for i, f := range faultFrames {
		frames[i] = debugreport.Frame{ActionName: f.ActionName, Locals: f.Locals}
	}

	actionBody := ""
	if len(faultFrames) > 0 {
		innermost := faultFrames[len(faultFrames)-1]
		if file := files.Get(innermost.BodySpan.FileID); file != nil {
			actionBody = file.Text(innermost.BodySpan)
		}
	}

	report := debugreport.Render(files, diag, frames, actionBody)
	return os.WriteFile(reportPath, []byte(report), 0o644)
}
