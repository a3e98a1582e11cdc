package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/logsentry/logsentry/internal/app"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "logsentry",
	Short: "Threat scoring for web server access logs",
	Long: `LogSentry scans web server access logs for attack patterns and
assigns each source IP a threat score.

Detection rules:
  - Brute force: repeated failed logins against auth endpoints
  - Port scan: path enumeration across many distinct URLs
  - SQL injection: known payload signatures in request paths
  - DDoS: request-rate bursts from a single source
  - External access: outside IPs reaching admin surfaces

Reports are written as CSV and a self-contained HTML dashboard.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <logfile|glob>",
	Short: "Analyze log files once and write the threat report",
	Long: `Analyze every file matching the given path or glob, score each
source IP, and write the CSV and HTML reports.

Examples:
  logsentry analyze /var/log/nginx/access.log
  logsentry analyze "/var/log/nginx/access.log*" -t 5 --time-window 2
  logsentry analyze ./access.log -i -w trusted.txt -o /tmp/report`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.Set("log.path", args[0])

		analyzer, err := app.New(app.FromViper(viper.GetViper()), os.Stdout)
		if err != nil {
			return err
		}
		defer shutdown(analyzer)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return analyzer.RunBatch(ctx)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <logfile>",
	Short: "Follow a log file and keep the threat report current",
	Long: `Continuously monitor a single log file. New lines are scored as
they are appended, the report files are rewritten after every scan, and
alerts are printed when an IP's score appears or rises. Rotation and
truncation are handled; a final report is flushed on Ctrl-C.

Examples:
  logsentry watch /var/log/nginx/access.log
  logsentry watch ./access.log --min-interval 2s --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.Set("log.path", args[0])

		analyzer, err := app.New(app.FromViper(viper.GetViper()), os.Stdout)
		if err != nil {
			return err
		}
		defer shutdown(analyzer)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return analyzer.RunWatch(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("LogSentry %s\n", Version)
		fmt.Printf("Commit:  %s\n", Commit)
		fmt.Printf("Built:   %s\n", BuildTime)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./logsentry.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	for _, cmd := range []*cobra.Command{analyzeCmd, watchCmd} {
		f := cmd.Flags()
		f.IntP("threshold", "t", 10, "failed logins inside the window that flag brute force")
		f.Float64("time-window", 1, "sliding window for windowed rules, in hours")
		f.BoolP("ignore-internal", "i", false, "skip private and loopback source IPs")
		f.StringP("whitelist", "w", "", "file with whitelisted IPs or CIDR blocks, one per line")
		f.Bool("no-whitelist", false, "run without a whitelist even if one is configured")
		f.StringP("output", "o", "threat_report", "report path without extension (.csv and .html are appended)")
		f.String("metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090)")

		viper.BindPFlag("detection.threshold", f.Lookup("threshold"))
		viper.BindPFlag("detection.window_hours", f.Lookup("time-window"))
		viper.BindPFlag("filter.ignore_internal", f.Lookup("ignore-internal"))
		viper.BindPFlag("filter.whitelist", f.Lookup("whitelist"))
		viper.BindPFlag("filter.no_whitelist", f.Lookup("no-whitelist"))
		viper.BindPFlag("output.base", f.Lookup("output"))
		viper.BindPFlag("metrics.addr", f.Lookup("metrics-addr"))
	}

	watchCmd.Flags().Duration("min-interval", 5*time.Second, "minimum delay between scans")
	viper.BindPFlag("watch.min_interval", watchCmd.Flags().Lookup("min-interval"))

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("logsentry")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/logsentry")
	}

	viper.SetEnvPrefix("LOGSENTRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("Config file loaded")
	} else if cfgFile != "" {
		log.Fatal().Err(err).Str("file", cfgFile).Msg("Cannot read config file")
	}
}

func setupLogging() {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

func shutdown(analyzer *app.Analyzer) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := analyzer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Shutdown incomplete")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}
