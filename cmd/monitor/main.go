package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/status"
	"github.com/sevigo/code-pulse/internal/wire"
)

func main() {
	themeFlag := flag.String("theme", "", "UI theme (cyan, matrix, amber, cyberpunk, ice, dracula, fire)")
	listThemes := flag.Bool("list-themes", false, "List all available themes")
	refresh := flag.Duration("refresh", 2*time.Second, "Refresh interval")
	flag.Parse()

	if *listThemes {
		fmt.Println("Available themes:")
		for _, theme := range ListThemes() {
			fmt.Printf("  - %s\n", theme)
		}
		os.Exit(0)
	}

	selectedTheme := *themeFlag
	if selectedTheme == "" {
		selectedTheme = os.Getenv("PULSE_THEME")
	}
	if selectedTheme == "" {
		selectedTheme = string(ThemeCyan)
	}
	theme := ThemeName(selectedTheme)
	if !slices.Contains(ListThemes(), theme) {
		fmt.Printf("Invalid theme '%s'. Use --list-themes to see available options.\n", theme)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	// The alternate screen owns the terminal.
	cfg.Logging.Output = "file"
	if cfg.Logging.File == "" {
		cfg.Logging.File = "pulse-monitor.log"
	}

	ops, cleanup, err := wire.InitializeOps(context.Background(), cfg)
	if err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	collector := status.NewCollector(ops.Store)
	p := tea.NewProgram(initialModel(theme, collector, *refresh), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		ops.Logger.Error("error running monitor", "error", err)
		fmt.Printf("Error running program: %v\n", err)
		cleanup()
		os.Exit(1)
	}
	ops.Logger.Info("monitor shut down")
}
