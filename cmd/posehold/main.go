package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/posehold/internal/config"
	"github.com/ayusman/posehold/internal/log"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "posehold",
	Short: "Hold yoga poses in front of your camera",
	Long: `posehold compares your body against a reference pose through the
webcam and scores every pose you hold for the target time.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "optional dotenv file with POSEHOLD_* settings")
	rootCmd.AddCommand(runCmd, serveCmd, importCmd, detectCmd)
}

// loadConfig reads the configuration and initializes logging.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	log.Init(cfg.LogLevel)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
