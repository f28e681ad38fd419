package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/mrsinham/pseudicom/internal/config"
	"github.com/mrsinham/pseudicom/internal/di"
	"github.com/mrsinham/pseudicom/internal/pipeline"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	// Check for synth subcommand (before flag.Parse)
	if len(os.Args) > 1 && os.Args[1] == "synth" {
		if err := runSynth(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	configFile := flag.String("config", "", "Load configuration from YAML file")
	root := flag.String("root", "", "Subject directory to process (or first argument)")
	workDir := flag.String("work-dir", "", "Directory for converted volumes and the report (default: <root>/.pseudicom)")
	workers := flag.String("workers", "", fmt.Sprintf("Number of parallel workers (default: %d = CPU cores)", runtime.NumCPU()))
	backup := flag.String("backup", "", "Keep backups of rewritten records: true/false (default: true)")
	changeDates := flag.String("change-dates", "", "Replace record dates: true/false, 'today' or a YYYYMMDD date (default: today)")
	deface := flag.String("deface", "", "Deface anatomical runs: true/false (default: true)")
	preview := flag.String("preview", "", "Write a QC thumbnail per defaced run: true/false (default: false)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (default: info)")
	logFormat := flag.String("log-format", "", "Log format: text or json (default: text)")
	help := flag.Bool("help", false, "Show help message")
	showVersion := flag.Bool("version", false, "Show version")

	flag.Parse()

	if *showVersion {
		fmt.Printf("pseudicom %s\n", version)
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	if *root == "" && flag.NArg() > 0 {
		*root = flag.Arg(0)
	}

	cfg, err := config.Load(*configFile, config.Overrides{
		Root:        *root,
		WorkDir:     *workDir,
		Workers:     *workers,
		Backup:      *backup,
		ChangeDates: *changeDates,
		Deface:      *deface,
		Preview:     *preview,
		LogLevel:    *logLevel,
		LogFormat:   *logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	injector := di.NewContainer(cfg)
	p, err := do.Invoke[*pipeline.Pipeline](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := p.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ %d records anonymized in %d folders, %d series defaced, %d units skipped\n",
		report.Records(), len(report.Folders), len(report.Defaced), len(report.Skipped))
	if len(report.Skipped) > 0 {
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: pseudicom [options] <root>")
	fmt.Fprintln(os.Stderr, "Run 'pseudicom --help' for details.")
}

func printHelp() {
	fmt.Println("pseudicom")
	fmt.Println("=========")
	fmt.Println()
	fmt.Println("De-identify MR records in place and deface the anatomical runs.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pseudicom [options] <root>")
	fmt.Println("  pseudicom synth [options]     Write a synthetic subject directory")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <FILE>        YAML configuration (run_pattern, anatomy_keywords, tags_to_clear, ...)")
	fmt.Println("  --root <DIR>           Subject directory to process")
	fmt.Println("  --work-dir <DIR>       Intermediate volumes and report.json (default: <root>/.pseudicom)")
	fmt.Printf("  --workers <N>          Parallel workers (default: %d = CPU cores)\n", runtime.NumCPU())
	fmt.Println("  --backup <BOOL>        Keep .bak_anonym / .bak_deface backups (default: true)")
	fmt.Println("  --change-dates <V>     true, false, today or a YYYYMMDD replacement date (default: today)")
	fmt.Println("  --deface <BOOL>        Run dcm2niix, bet and quickshear on anatomical runs (default: true)")
	fmt.Println("  --preview <BOOL>       Write qc.png thumbnails of the defaced volumes (default: false)")
	fmt.Println("  --log-level <LEVEL>    debug, info, warn, error (default: info)")
	fmt.Println("  --log-format <FORMAT>  text or json (default: text)")
	fmt.Println("  --version              Show version")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  PSEUDICOM_ROOT, PSEUDICOM_WORK_DIR, PSEUDICOM_WORKERS, PSEUDICOM_BACKUP,")
	fmt.Println("  PSEUDICOM_CHANGE_DATES, PSEUDICOM_DEFACE, PSEUDICOM_PREVIEW, PSEUDICOM_LOG_LEVEL,")
	fmt.Println("  PSEUDICOM_LOG_FORMAT, PSEUDICOM_DCM2NIIX, PSEUDICOM_BET, PSEUDICOM_QUICKSHEAR")
	fmt.Println()
	fmt.Println("Flags take precedence over environment variables, which take precedence over the config file.")
	fmt.Println()
	fmt.Println("Exit codes: 0 success, 1 run failed, 2 finished with skipped records or series.")
}
