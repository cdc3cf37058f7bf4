package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tasklight/tasklight/internal/logclient"
	"github.com/tasklight/tasklight/internal/tui"
)

// Set by the release build via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	configPath := flag.String("config", "", "config file (default is $HOME/.config/tasklight/config.yml)")
	serverURL := flag.String("server", "", "base URL of the tasklight service")
	showVersion := flag.Bool("version", false, "print version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	cfg, err := loadCLIConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tasklight-tui:", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.ServerURL = strings.TrimRight(*serverURL, "/")
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "tasklight-tui:", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("tasklight-tui %s\n", version)
	fmt.Printf("  commit: %s\n", commit)
	fmt.Printf("  built:  %s (%s)\n", buildTime, goVersion)
}

func runTUI(cfg cliConfig) error {
	if home, err := os.UserHomeDir(); err == nil {
		configDir := filepath.Join(home, ".config", "tasklight")
		if err := tui.InitializeSkin(cfg.Skin, configDir); err != nil {
			fmt.Fprintf(os.Stderr, "skin %q not loaded: %v\n", cfg.Skin, err)
		}
	}

	client := logclient.New(cfg.ServerURL)

	dashboard := tui.NewDashboard(client, tui.DashboardConfig{
		UpdateInterval:     cfg.UpdateInterval,
		LogBuffer:          cfg.LogBuffer,
		ReverseScrollWheel: cfg.ReverseScrollWheel,
	})
	app := tui.NewApp(dashboard)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "/dev/tty") || strings.Contains(err.Error(), "TTY") {
			return errors.New("needs an interactive terminal")
		}
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}
