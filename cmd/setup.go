package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/milordsutrix/tool-tubecutter/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
	Select(message string, options []string, defaultValue string) (string, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

func (p *SurveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through setting up the server address, working
directory, storage backend and Google Drive OAuth credentials.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return RunSetupWithPrompter(DefaultPrompter, "config/config.yaml")
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Println("Setup cancelled.")
			return nil
		}
	}

	fmt.Println("Welcome to tubecutter setup!")
	fmt.Println()

	cfg := config.Default()

	if err := promptServer(prompter, cfg); err != nil {
		return err
	}
	if err := promptStorage(prompter, cfg); err != nil {
		return err
	}
	if err := promptGoogle(prompter, cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println()
	fmt.Printf("Configuration saved to %s\n", configPath)
	return nil
}

func promptServer(prompter Prompter, cfg *config.Config) error {
	address, err := prompter.Input("Listen address:", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if address == "" {
		return fmt.Errorf("listen address is required")
	}
	cfg.Server.Address = address

	workDir, err := prompter.Input("Working directory for fetched and extracted audio:", cfg.Paths.WorkingDirectory)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if workDir == "" {
		return fmt.Errorf("working directory is required")
	}
	cfg.Paths.WorkingDirectory = workDir

	bitrate, err := prompter.Input("MP3 bitrate:", cfg.Audio.Bitrate)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if bitrate != "" {
		cfg.Audio.Bitrate = bitrate
	}

	return nil
}

func promptStorage(prompter Prompter, cfg *config.Config) error {
	backend, err := prompter.Select("Storage backend:", []string{"memory", "redis"}, cfg.Storage.Backend)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Storage.Backend = backend

	if backend == "redis" {
		address, err := prompter.Input("Redis address:", cfg.Storage.RedisAddress)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if address == "" {
			return fmt.Errorf("redis address is required")
		}
		cfg.Storage.RedisAddress = address
	}

	return nil
}

func promptGoogle(prompter Prompter, cfg *config.Config) error {
	enable, err := prompter.Confirm("Configure Google Drive uploads?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !enable {
		return nil
	}

	clientID, err := prompter.Input("Google OAuth client ID:", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if clientID == "" {
		return fmt.Errorf("client ID is required")
	}
	cfg.Google.ClientID = clientID

	clientSecret, err := prompter.Input("Google OAuth client secret:", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if clientSecret == "" {
		return fmt.Errorf("client secret is required")
	}
	cfg.Google.ClientSecret = clientSecret

	redirect, err := prompter.Input("OAuth redirect URL:", "http://localhost:5000/api/drive/callback")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Google.RedirectURL = redirect

	return nil
}
