package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"brigade/internal/client"
	"brigade/internal/display"
	"brigade/internal/models"
	"brigade/internal/terminal"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	server  = flag.String("server", "", "Brigade server URL (default $BRIGADE_API_URL or http://localhost:8080)")
	role    = flag.String("role", "kitchen", "Display role: kitchen, pickup, front or recall")
	token   = flag.String("token", os.Getenv("BRIGADE_TOKEN"), "Bearer token for the API")
	logFile = flag.String("log", "", "Write logs to this file instead of discarding them")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

// run owns every deferred cleanup so main can exit with its code.
func run() int {
	r, err := terminal.ParseRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	// The UI owns the terminal; logs go to a file or nowhere.
	log.SetOutput(io.Discard)
	if *logFile != "" {
		f, err := tea.LogToFile(*logFile, "brigade-display")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			return 1
		}
		defer f.Close()
	}

	baseURL := *server
	if baseURL == "" {
		baseURL = os.Getenv("BRIGADE_API_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	api := client.New(baseURL, *token)

	var p *tea.Program
	ctrl := terminal.New(api, r,
		terminal.WithRenderer(func(orders []models.KitchenOrder) {
			p.Send(display.OrdersMsg(orders))
		}),
		terminal.WithNotices(func(msg string) {
			p.Send(display.NoticeMsg(msg))
		}),
	)
	defer ctrl.Close()

	p = tea.NewProgram(display.New(ctrl), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go api.Listen(ctx,
		func(ev models.Event) {
			if ev.Name == models.EventKDSUpdate {
				ctrl.Notify()
			}
		},
		func(ev client.LinkEvent) {
			p.Send(display.LinkMsg(ev.Up))
			if ev.Up && ev.Attempts == 0 {
				// First connect; Init already fetched.
				return
			}
			p.Send(display.NoticeMsg(ev.Message()))
			if ev.Up {
				ctrl.ScheduleRefresh()
			}
		},
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running display: %v\n", err)
		return 1
	}
	return 0
}
