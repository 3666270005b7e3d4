package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zephyrtronium/signals"
	"github.com/zephyrtronium/signals/config"
	"github.com/zephyrtronium/signals/plot"
	"github.com/zephyrtronium/signals/repl"
)

// Version is filled when building with -ldflags, but not when installing via
// "go install".
var Version string

var rootCmd = &cobra.Command{
	Use:   "sigplot [flags] [statement...]",
	Short: "Evaluate and plot signal expressions.",
	Long: `Evaluate and plot piecewise signal expressions built from rect, u, and
elementary functions, with named function definitions, time-axis
transformations like x(2*t+1), and derivatives d(expr)/d(t).

Each argument is run as a statement. With no arguments and no input file,
sigplot starts an interactive shell.`,
	SilenceUsage: true,
	RunE:         run,
}

// Execute runs the root command. This is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Bool("version", false, "Report version of this executable")
	rootCmd.Flags().String("config", "", "configuration file (default $HOME/"+config.FileName+")")
	rootCmd.Flags().Bool("dump-config", false, "print the effective configuration and exit")
	rootCmd.Flags().Float64("tmin", 0, "start of the time axis")
	rootCmd.Flags().Float64("tmax", 0, "end of the time axis")
	rootCmd.Flags().IntP("points", "n", 0, "number of samples on the time axis")
	rootCmd.Flags().UintP("prec", "p", 0, "precision in bits of exp, log, and ^")
	rootCmd.Flags().Int("max-depth", 0, "limit on nested function calls and derivatives")
	rootCmd.Flags().Int("width", 0, "plot width in characters (default terminal width)")
	rootCmd.Flags().Int("height", 0, "plot height in characters")
	rootCmd.Flags().StringArrayP("define", "D", nil, "name=expression function definition (any number of times)")
	rootCmd.Flags().String("in", "", "file of statements to run, one per line (- for stdin)")
	rootCmd.Flags().Bool("echo", false, "print the parse tree of each plotted expression")
	rootCmd.Flags().BoolP("verbose", "v", false, "increase logging verbosity")
}

func run(cmd *cobra.Command, args []string) error {
	if getFlag(cmd, "version") {
		printVersion()
		return nil
	}
	// Configure log level
	if getFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if getFlag(cmd, "dump-config") {
		b, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(b)
		return err
	}

	logger := log.StandardLogger()
	reg := signals.NewRegistry(logger)
	for _, d := range cfg.Functions {
		reg.Define(d.Name, d.Body)
	}
	for _, d := range getStringArray(cmd, "define") {
		name, body, ok := strings.Cut(d, "=")
		if !ok {
			return fmt.Errorf(`function definitions must be "name=expression", not %q`, d)
		}
		reg.Define(strings.TrimSpace(name), strings.TrimSpace(body))
	}
	ev := signals.NewEvaluator(reg,
		signals.Prec(cfg.Prec),
		signals.MaxDepth(cfg.MaxDepth),
		signals.Logger(logger),
	)
	s := repl.New(ev, plot.NewText(os.Stdout, cfg.Width, cfg.Height), os.Stdout)
	s.TMin, s.TMax, s.Points = cfg.TMin, cfg.TMax, cfg.Points
	s.Prompt = cfg.Prompt
	s.Log = logger

	echo := getFlag(cmd, "echo")
	in := getString(cmd, "in")
	if in != "" {
		f := os.Stdin
		if in != "-" {
			f, err = os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()
		}
		if err := s.Run(f); err != nil {
			return err
		}
	}
	for _, arg := range args {
		if echo {
			printTree(os.Stdout, arg)
		}
		err := s.Exec(arg)
		if errors.Is(err, repl.ErrQuit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	if in == "" && len(args) == 0 {
		fmt.Println("=== Signal Plotter ===")
		fmt.Println("Type help for statements and examples.")
		return s.Run(os.Stdin)
	}
	return nil
}

// loadConfig reads the configuration file and applies flags over it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if path := getString(cmd, "config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("tmin") {
		cfg.TMin = getFloat(cmd, "tmin")
	}
	if flags.Changed("tmax") {
		cfg.TMax = getFloat(cmd, "tmax")
	}
	if flags.Changed("points") {
		cfg.Points = getInt(cmd, "points")
	}
	if flags.Changed("prec") {
		cfg.Prec = getUint(cmd, "prec")
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = getInt(cmd, "max-depth")
	}
	if flags.Changed("width") {
		cfg.Width = getInt(cmd, "width")
	}
	if flags.Changed("height") {
		cfg.Height = getInt(cmd, "height")
	}
	return cfg, cfg.Validate()
}

func printVersion() {
	fmt.Print("sigplot ")
	if Version != "" {
		fmt.Printf("%s", Version)
	} else if info, ok := debug.ReadBuildInfo(); ok {
		// Built via "go install"
		fmt.Printf("%s", info.Main.Version)
	} else {
		fmt.Printf("(unknown version)")
	}
	fmt.Println()
}

// printTree prints how an expression parses after rect normalization, and
// the user functions it calls. Derivative notation shows as a call to d.
func printTree(w io.Writer, expr string) {
	e, err := signals.Parse(signals.Normalize(expr))
	if err != nil {
		fmt.Fprintf(w, "%s : %v\n", expr, err)
		return
	}
	fmt.Fprintf(w, "%s : %v\n", expr, e)
	if calls := e.Calls(); len(calls) > 0 {
		fmt.Fprintf(w, "  calls: %s\n", strings.Join(calls, ", "))
	}
}
