package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/OCAP2/scrubber/internal/config"
	"github.com/OCAP2/scrubber/internal/logging"
)

// AppName names the log files.
const AppName = "scrubber"

var exit = os.Exit
var cfgFile string

// configErr is reported once a logger exists.
var configErr error

var rootCmd = &cobra.Command{
	Use:   "scrubber",
	Short: "Scrub through recorded OCAP sessions",
	Long: `scrubber plays back a recorded session on a timeline, shows marker details
as playback crosses them and lets you step between markers.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Error: panic: %v\n", r)
			exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./"+config.FileName+")")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.Float64("speed", 0, "initial playback speed")
	flags.Bool("loop", false, "loop playback")
	flags.String("source", "", "marker source: file, sqlite, postgres")
	flags.String("path", "", "session directory or sqlite file")

	viper.BindPFlag("logLevel", flags.Lookup("log-level"))
	viper.BindPFlag("playback.speed", flags.Lookup("speed"))
	viper.BindPFlag("playback.loop", flags.Lookup("loop"))
	viper.BindPFlag("source.type", flags.Lookup("source"))
	viper.BindPFlag("source.path", flags.Lookup("path"))

	rootCmd.AddCommand(newPlayCmd(), newMarkersCmd(), newSessionsCmd(), newImportCmd())
}

// initConfig reads the config file and SCRUBBER_* environment variables.
func initConfig() {
	if cfgFile != "" {
		configErr = config.LoadFile(cfgFile)
		if configErr != nil {
			fmt.Fprintln(os.Stderr, "Warning:", configErr)
		}
	} else {
		configErr = config.Load(".")
	}

	viper.SetEnvPrefix("SCRUBBER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setupLogging builds the logger for one command run. Records go to the
// session log file and, when console is set, to console as well.
func setupLogging(console io.Writer, start time.Time) (*logging.SlogManager, io.Closer, error) {
	file, err := logging.OpenLogFile(viper.GetString("logsDir"), AppName, start)
	if err != nil {
		return nil, nil, err
	}
	m := logging.NewSlogManager()
	m.Setup(console, file, viper.GetString("logLevel"))
	m.Logger().Debug("Logging to file", "path", file.Name())
	if configErr != nil {
		m.Logger().Warn("Config file not loaded, using defaults", "error", configErr)
	}
	return m, file, nil
}
