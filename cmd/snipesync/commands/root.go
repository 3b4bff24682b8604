package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DrSkyle/snipesync/pkg/config"
	"github.com/DrSkyle/snipesync/pkg/engine"
	"github.com/DrSkyle/snipesync/pkg/engine/history"
	"github.com/DrSkyle/snipesync/pkg/snipeit"
	"github.com/DrSkyle/snipesync/pkg/version"
)

var (
	cfgFile string
	flags   struct {
		Verbose     bool
		LogFormat   string
		LogLevel    string
		MockMode    bool
		AllProfiles bool
	}
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF99")).MarginBottom(1)
	flagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF99"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFCC00"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555"))
)

var rootCmd = &cobra.Command{
	Use:   "snipesync",
	Short: "Sync EC2 instances into Snipe-IT",
	Long: `SnipeSync - EC2 to Snipe-IT asset sync

Discover. Normalize. Reconcile.`,
	Version:       version.Current,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.snipesync.yaml)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Log every AWS API call")
	pf.StringVar(&flags.LogFormat, "log-format", "", "Log format: json or text")
	pf.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&flags.AllProfiles, "all-profiles", false, "Scan every local AWS profile instead of the configured accounts")

	pf.BoolVar(&flags.MockMode, "mock", false, "Run against a synthetic AWS fleet")
	_ = pf.MarkHidden("mock")

	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})
}

func initConfig() {
	config.LoadEnvFiles()
	config.SetDefaults(viper.GetViper())
	if path, err := history.DefaultLedgerPath(); err == nil {
		viper.SetDefault("report.history", path)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".snipesync.yaml"))
			viper.SetConfigType("yaml")
		}
	}
	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", cfgFile, err)
	}
}

// loadConfig decodes and validates the configuration for scope.
func loadConfig(scope config.Scope) (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, err
	}
	if flags.AllProfiles || flags.MockMode {
		scope &^= config.NeedAccounts
	}
	if cfg.Verbose && !logLevelExplicit(viper.GetViper(), rootCmd.PersistentFlags()) {
		cfg.Log.Level = "debug"
	}
	if flags.MockMode && len(cfg.Accounts) == 0 {
		cfg.Accounts = mockAccounts
	}
	if err := cfg.Validate(scope); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// logLevelExplicit reports whether the user chose a log level. viper.IsSet also
// counts registered defaults, so the sources are checked one by one.
func logLevelExplicit(v *viper.Viper, fs *pflag.FlagSet) bool {
	if f := fs.Lookup("log-level"); f != nil && f.Changed {
		return true
	}
	if v.InConfig("log.level") {
		return true
	}
	_, ok := os.LookupEnv(config.EnvPrefix + "_LOG_LEVEL")
	return ok
}

func newLogger(cfg config.Config) *slog.Logger {
	logger := engine.NewLogger(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)
	return logger
}

func newEngine(ctx context.Context, cfg config.Config, ecfg engine.Config) (*engine.Engine, error) {
	ecfg.App = cfg
	ecfg.MockMode = flags.MockMode
	ecfg.AllProfiles = flags.AllProfiles
	ecfg.Logger = newLogger(cfg)
	return engine.New(ctx, engine.WithConfig(ecfg))
}

func newRegistryClient(cfg config.Config) (*snipeit.Client, error) {
	return snipeit.NewClient(snipeit.Config{
		BaseURL:       cfg.Registry.URL,
		Token:         cfg.Registry.Token,
		Timeout:       cfg.Registry.Timeout,
		LookupTimeout: cfg.Registry.LookupTimeout,
	})
}

func closeEngine(eng *engine.Engine) {
	if err := eng.Close(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("Telemetry shutdown failed", "error", err)
	}
}

func renderHelp(cmd *cobra.Command) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("SNIPESYNC %s", version.Current)))
	fmt.Println("Discover EC2 instances across AWS accounts and reconcile them into Snipe-IT.")

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Println(titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Println("")
	}

	fmt.Println(titleStyle.Render("EXAMPLES"))
	fmt.Println("  snipesync provision                  # Create category, model and custom fields")
	fmt.Println("  snipesync sync --dry-run             # Show what would be created or updated")
	fmt.Println("  snipesync sync --strict              # Exit 1 if any account, region or asset failed")
	fmt.Println("  snipesync check                      # Inspect what the registry holds")
	fmt.Println("")

	fmt.Println(titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-15s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Println(flagStyle.Render(output))
	})
	fmt.Println("")
}
