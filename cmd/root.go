package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"bigocheck/internal/analyzer"
	"bigocheck/internal/config"
	"bigocheck/internal/models"
	"bigocheck/internal/watcher"
)

var (
	formatFlag         string
	watchFlag          bool
	configFlag         string
	generateConfigFlag bool
	modelFlag          string
	noRemoteFlag       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bigocheck [files or directories]",
	Short: "Estimate per-function Big-O complexity of Python code",
	Long: `bigocheck statically estimates the asymptotic time and space complexity
of every function in a Python source file, from loop nesting and
recursion patterns. With an inference credential configured it asks a
language model first and falls back to the local heuristic.

Examples:
  bigocheck .                          # Analyze current directory
  bigocheck solver.py utils.py         # Analyze specific files
  cat solver.py | bigocheck            # Analyze stdin
  bigocheck --format=json .            # Output results in JSON format
  bigocheck --no-remote solver.py      # Heuristic only
  bigocheck --generate-config          # Generate sample config file`,
	Run: runAnalysis,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format (console, json)")
	rootCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch mode for development")
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to configuration file")
	rootCmd.Flags().BoolVar(&generateConfigFlag, "generate-config", false, "Generate sample configuration file")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Remote model identifier override")
	rootCmd.Flags().BoolVar(&noRemoteFlag, "no-remote", false, "Disable the remote classifier")
}

func runAnalysis(cmd *cobra.Command, args []string) {
	if generateConfigFlag {
		generateConfig()
		return
	}

	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		color.Red("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if formatFlag != "" {
		cfg.Output.Format = formatFlag
	}
	if modelFlag != "" {
		cfg.Remote.Model = modelFlag
	}
	if noRemoteFlag {
		cfg.Remote.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		color.Red("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := analyzer.NewEngine(cfg)
	reportGen := analyzer.NewReportGenerator(cfg)

	if len(args) == 0 && !isatty.IsTerminal(os.Stdin.Fd()) {
		runStdin(ctx, engine, reportGen, cfg)
		return
	}
	if len(args) == 1 && args[0] == "-" {
		runStdin(ctx, engine, reportGen, cfg)
		return
	}

	if len(args) == 0 {
		args = []string{"."}
	}

	pyFiles := collectFiles(args)
	if len(pyFiles) == 0 {
		color.Yellow("⚠️  No Python files found to analyze\n")
		return
	}

	runFiles(ctx, engine, reportGen, cfg, pyFiles)

	if watchFlag {
		runWatchMode(ctx, engine, reportGen, cfg, args)
	}
}

func runStdin(ctx context.Context, engine *analyzer.Engine, reportGen *analyzer.ReportGenerator, cfg *config.Config) {
	src, err := io.ReadAll(os.Stdin)
	if err != nil {
		color.Red("Error reading stdin: %v\n", err)
		os.Exit(1)
	}

	verdicts, err := engine.AnalyzeSource(ctx, src)
	if err != nil {
		// The machine-readable channel stays parseable; the diagnostic
		// goes to stderr.
		if cfg.Output.Format == "json" {
			fmt.Println("[]")
		}
		fmt.Fprintf(os.Stderr, "bigocheck: %v\n", err)
		os.Exit(1)
	}

	report := models.NewReport()
	report.Files = append(report.Files, "<stdin>")
	for _, v := range verdicts {
		report.AddVerdict(v)
	}

	emit(reportGen, cfg, report)
}

func runFiles(ctx context.Context, engine *analyzer.Engine, reportGen *analyzer.ReportGenerator, cfg *config.Config, files []string) {
	if cfg.Output.Verbose {
		mode := "heuristic-only"
		if !engine.HeuristicOnly() {
			mode = "remote with heuristic fallback"
		}
		color.Cyan("🔍 Analyzing %d Python files (%s)...\n\n", len(files), mode)
	}

	report, err := engine.AnalyzeFiles(ctx, files)
	if err != nil {
		color.Red("Analysis failed: %v\n", err)
		os.Exit(1)
	}

	emit(reportGen, cfg, report)

	if len(report.Errors) > 0 && !watchFlag {
		os.Exit(1)
	}
}

func emit(reportGen *analyzer.ReportGenerator, cfg *config.Config, report *models.Report) {
	out, err := reportGen.Generate(report)
	if err != nil {
		color.Red("Failed to encode report: %v\n", err)
		os.Exit(1)
	}

	if diag := reportGen.Diagnostics(report); diag != "" {
		fmt.Fprint(os.Stderr, diag)
	}

	if cfg.Output.OutputFile != "" {
		if err := writeReportToFile(out, cfg.Output.OutputFile); err != nil {
			color.Red("Failed to write report to file: %v\n", err)
			os.Exit(1)
		}
		color.Green("📄 Report saved to: %s\n", cfg.Output.OutputFile)
		return
	}
	fmt.Print(out)
}

func runWatchMode(ctx context.Context, engine *analyzer.Engine, reportGen *analyzer.ReportGenerator, cfg *config.Config, paths []string) {
	fw, err := watcher.NewFileWatcher(cfg)
	if err != nil {
		color.Red("Failed to start watch mode: %v\n", err)
		os.Exit(1)
	}
	defer fw.Close()

	err = fw.Watch(paths, func(changed []string) error {
		color.Cyan("\n♻️  Re-analyzing %d changed files...\n", len(changed))
		report, err := engine.AnalyzeFiles(ctx, changed)
		if err != nil {
			return err
		}
		emit(reportGen, cfg, report)
		return nil
	})
	if err != nil {
		color.Red("Failed to watch paths: %v\n", err)
		os.Exit(1)
	}

	color.Cyan("👀 Watching for changes (ctrl-c to stop)...\n")
	<-ctx.Done()
}

func writeReportToFile(report, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(filePath, []byte(report), 0644)
}

func generateConfig() {
	configPath := ".bigocheck.yml"
	if err := config.GenerateConfig(configPath); err != nil {
		color.Red("Failed to generate config file: %v\n", err)
		os.Exit(1)
	}
	color.Green("✅ Generated sample configuration file: %s\n", configPath)
	color.Cyan("📝 Edit this file to customize bigocheck behavior\n")
	color.Cyan("🚀 Run 'bigocheck --config=%s .' to use it\n", configPath)
}

// collectFiles recursively finds all .py files in the given paths
func collectFiles(args []string) []string {
	var pyFiles []string
	for _, arg := range args {
		files, err := collectPythonFiles(arg)
		if err != nil {
			color.Red("Error collecting files from %s: %v\n", arg, err)
			continue
		}
		pyFiles = append(pyFiles, files...)
	}
	return pyFiles
}

func collectPythonFiles(path string) ([]string, error) {
	var pyFiles []string

	err := filepath.Walk(path, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip virtualenvs, caches, and other common directories
		if info.IsDir() {
			name := info.Name()
			if name == "venv" || name == ".venv" || name == "__pycache__" || name == ".git" || name == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasSuffix(filePath, ".py") || strings.HasSuffix(filePath, ".pyw") {
			pyFiles = append(pyFiles, filePath)
		}

		return nil
	})

	return pyFiles, err
}
