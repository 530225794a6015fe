package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/datachat/console/internal/apiclient"
	"github.com/datachat/console/internal/config"
	"github.com/datachat/console/internal/logger"
	"github.com/datachat/console/internal/shell"
	"github.com/datachat/console/internal/tui"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "datachat.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the program; logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format, out)

	client := apiclient.New(apiclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.GetAPITimeout(),
	})

	app := shell.New(client, shell.Options{Suggestions: cfg.Chat.Suggestions})
	defer app.Close()

	probe, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := client.Health(probe); err != nil {
		logger.WithFields(logrus.Fields{"api": cfg.API.BaseURL, "error": err}).Warn("structured data API is not reachable")
		app.Notices().Error("The structured data API is not reachable: " + err.Error())
	}
	cancel()

	p := tea.NewProgram(tui.New(context.Background(), app), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
