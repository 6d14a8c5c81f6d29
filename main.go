// Package main provides the entry point for the readalong CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/readalong/internal/logging"
	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/engines"
	"github.com/dgnsrekt/readalong/tts/engines/mock"
	"github.com/dgnsrekt/readalong/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	readmeNames = []string{"README.md", "README", "Readme.md", "Readme", "readme.md", "readme"}
	configFile  string
	logFile     string
	debug       bool
	plain       bool
	mode        string
	showAll     bool
	mouse       bool

	rootCmd = &cobra.Command{
		Use:   "readalong [SOURCE|DIR]",
		Short: "Read markdown aloud on the CLI, following along word by word",
		Long: paragraph(
			fmt.Sprintf("\nRead markdown aloud on the CLI, %s.", keyword("one highlighted word at a time")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// source is a markdown document and where it came from. path is empty for
// stdin.
type source struct {
	content string
	path    string
}

// sourceFromArg reads the document named by arg: "-" for stdin, a file, or
// a directory, in which case its README or first markdown file is used.
func sourceFromArg(arg string, stdin io.Reader) (*source, error) {
	if arg == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("unable to read from stdin: %w", err)
		}
		return &source{content: string(b)}, nil
	}

	if arg == "" {
		// use the current working dir if no argument was supplied
		arg = "."
	}
	arg, err := homedir.Expand(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to expand path: %w", err)
	}

	st, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	if st.IsDir() {
		files, err := ui.FindMarkdownFiles(arg, showAll)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, errors.New("missing markdown source")
		}
		arg = pickReadme(files)
	}

	b, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	p, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{content: string(b), path: p}, nil
}

// pickReadme returns the shallowest README among files, or the first file.
func pickReadme(files []string) string {
	best := ""
	for _, f := range files {
		for _, v := range readmeNames {
			if !strings.EqualFold(filepath.Base(f), v) {
				continue
			}
			if best == "" || depth(f) < depth(best) {
				best = f
			}
		}
	}
	if best != "" {
		return best
	}
	return files[0]
}

func depth(path string) int {
	return strings.Count(filepath.ToSlash(path), "/")
}

func validateOptions(cmd *cobra.Command) error {
	// an explicit config file replaces the one found in the default places
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	// grab config values from Viper
	mouse = viper.GetBool("mouse")
	showAll = viper.GetBool("all")
	plain = viper.GetBool("plain")
	debug = viper.GetBool("debug")
	logFile = viper.GetString("log_file")

	mode = viper.GetString("mode")
	if _, err := ui.ParseMode(mode); err != nil {
		return err
	}

	if debug {
		log.SetLevel(log.DebugLevel)
		logging.SetLevel("debug")
	}
	return nil
}

func logLevel() string {
	if debug {
		return "debug"
	}
	return "info"
}

// loadTTSConfig returns the validated TTS configuration from the config
// file, flags and environment.
func loadTTSConfig() (tts.Config, error) {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return cfg, fmt.Errorf("unable to load tts config: %w", err)
	}
	return cfg, nil
}

// newBackend creates the speech backend named by cfg.Engine, wrapped with
// the cfg.Fallback backend when one is configured.
func newBackend(cfg tts.Config) (tts.SpeechBackend, error) {
	primary, err := engineByName(cfg.Engine, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Fallback == "" {
		return primary, nil
	}
	fallback, err := engineByName(cfg.Fallback, cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("Using fallback engine", "primary", cfg.Engine, "fallback", cfg.Fallback)
	return engines.NewFallback(primary, fallback, engines.DefaultMaxFailures), nil
}

func engineByName(name string, cfg tts.Config) (tts.SpeechBackend, error) {
	switch name {
	case "mock":
		return mock.New(cfg.Mock), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", tts.ErrBackendUnavailable, name)
	}
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	// if stdin is a pipe then use stdin for input. note that you can also
	// explicitly use a - to read from stdin.
	if arg == "" {
		if yes, err := stdinIsPipe(); err != nil {
			return err
		} else if yes {
			arg = "-"
		}
	}

	src, err := sourceFromArg(arg, os.Stdin)
	if err != nil {
		return err
	}

	ttsCfg, err := loadTTSConfig()
	if err != nil {
		return err
	}
	backend, err := newBackend(ttsCfg)
	if err != nil {
		return err
	}

	if plain || arg == "-" {
		closer, err := setupLog(false)
		if err != nil {
			return err
		}
		defer closer() //nolint:errcheck
		return runPlain(cmd.Context(), cmd.OutOrStdout(), src.content, ttsCfg, backend)
	}

	closer, err := setupLog(true)
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck
	return runTUI(src, ttsCfg, backend)
}

// setupLog sends logs to --log-file when given. The TUI owns the terminal,
// so it logs to the default log file otherwise; other modes keep stderr.
func setupLog(tui bool) (func() error, error) {
	path := logFile
	if path == "" && tui {
		p, err := logging.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if path == "" {
		logging.SetLevel(logLevel())
		return func() error { return nil }, nil
	}
	return logging.Setup(path, logLevel())
}

func runTUI(src *source, ttsCfg tts.Config, backend tts.SpeechBackend) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Path = src.path
	cfg.ShowAllFiles = showAll
	cfg.EnableMouse = mouse
	cfg.Mode = mode

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, ttsCfg, backend, src.content).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug messages")
	rootCmd.Flags().BoolVarP(&plain, "plain", "p", false, "read without the TUI, printing each word as it is spoken")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", ui.ModeSource.String(), "view to open in: source, live or reading")
	rootCmd.Flags().BoolVarP(&showAll, "all", "a", false, "include hidden and git-ignored files when searching a directory")
	rootCmd.Flags().BoolVar(&mouse, "mouse", false, "enable mouse wheel (TUI-mode only)")
	_ = rootCmd.Flags().MarkHidden("mouse")
	rootCmd.Flags().String("voice", "", "voice name, id or language tag")
	rootCmd.Flags().Float64("rate", tts.DefaultSettings().Rate, "speaking rate (0.5-2.0)")
	rootCmd.Flags().Int("chunk-size", tts.DefaultChunkSize, "longest text handed to the speech engine at once")
	rootCmd.Flags().String("highlight", tts.DefaultSettings().HighlightColor, "highlight color")

	// Config bindings
	_ = viper.BindPFlag("plain", rootCmd.Flags().Lookup("plain"))
	_ = viper.BindPFlag("mode", rootCmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("all", rootCmd.Flags().Lookup("all"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = viper.BindPFlag("tts.voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("tts.rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("tts.chunk_size", rootCmd.Flags().Lookup("chunk-size"))
	_ = viper.BindPFlag("tts.highlight_color", rootCmd.Flags().Lookup("highlight"))

	viper.SetDefault("mode", ui.ModeSource.String())
	viper.SetDefault("all", false)
	tts.SetDefaults()

	rootCmd.AddCommand(configCmd, convertCmd, voicesCmd, manCmd)
}

func configDirs() ([]string, error) {
	scope := gap.NewScope(gap.User, "readalong")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "readalong")}, dirs...)
	}

	if c := os.Getenv("READALONG_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := configDirs()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("readalong")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("readalong")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "readalong.yml")
}
