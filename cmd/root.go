package cmd

import (
	"fmt"
	"os"

	"github.com/milordsutrix/tool-tubecutter/infrastructure/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tubecutter",
	Short: "Cut named audio clips out of YouTube videos and uploaded files",
	Long: `tubecutter turns a YouTube video or an uploaded audio file into a set
of named MP3 clips:

  - Validate and probe YouTube URLs
  - Fetch the source audio once per job
  - Extract each requested time range as its own MP3
  - Download clips individually or as a zip bundle
  - Optionally push a clip to Google Drive after an OAuth handshake

Example:
  tubecutter serve --config config/config.yaml`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "config/config.yaml"
	}

	var err error
	cfg, err = config.LoadOrDefault(cfgFile)
	if err != nil {
		// Commands that need config will check and error appropriately
		cfg = nil
	}
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}
