package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/chime/internal/config"
	"github.com/sadopc/chime/internal/engine"
	"github.com/sadopc/chime/internal/hub"
	"github.com/sadopc/chime/internal/store"
	"github.com/sadopc/chime/internal/tui"
	"github.com/sadopc/chime/internal/wake"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		dbPath     = flag.String("db", "", "path to the sqlite database")
		listenAddr = flag.String("listen", "", "websocket server listen address")
		headless   = flag.Bool("headless", false, "run without the TUI (daemon mode)")
		logLevel   = flag.String("log-level", "", "log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags that were actually passed win over the file.
	overrides := config.Overrides{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			overrides.DBPath = dbPath
		case "listen":
			overrides.ListenAddr = listenAddr
		case "headless":
			overrides.Headless = headless
		case "log-level":
			overrides.LogLevel = logLevel
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, headless bool) error {
	path := config.ExpandPath(cfg.Database.Path)
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return err
		}
	}

	logger, closeLog, err := newLogger(cfg, headless, path)
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := store.New(path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	var locker wake.Locker = &wake.NopLocker{}
	if cfg.Scheduler.InhibitSleep {
		locker = wake.NewLogind("chime")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The hub snapshots engine state for new clients and the engine
	// emits events through the hub, so the snapshot closes over the
	// engine variable assigned just below. No client can connect
	// before the server starts, so the closure never runs early.
	var eng *engine.Engine
	var emitter engine.Emitter = engine.NopEmitter{}
	var h *hub.Hub
	if cfg.Server.Enabled {
		h = hub.New(logger, func() (any, error) { return snapshot(eng) }, hub.Config{})
		emitter = h
	}

	eng = engine.New(s, emitter, locker, logger, engine.Options{
		PollInterval:   cfg.PollInterval(),
		GapThreshold:   cfg.GapThreshold(),
		TimerPolicy:    engine.Policy(cfg.Scheduler.TimerPolicy),
		ReminderPolicy: engine.Policy(cfg.Scheduler.ReminderPolicy),
		PomodoroPolicy: engine.Policy(cfg.Scheduler.PomodoroPolicy),
	})

	go eng.Run(ctx)

	if cfg.Server.Enabled {
		go h.Run(ctx)
		srv := newServer(cfg.Server.ListenAddr, h, eng)
		go func() {
			logger.Info("websocket server listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("server stopped", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if headless {
		logger.Info("running headless")
		<-ctx.Done()
		return nil
	}

	app := tui.NewApp(eng)
	p := tea.NewProgram(app, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err = p.Run()
	stop()
	return err
}

// newLogger builds the process logger. The TUI owns the terminal, so
// interactive runs log to a file next to the database instead.
func newLogger(cfg config.Config, headless bool, dbPath string) (*slog.Logger, func(), error) {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if headless {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		return slog.New(handler), func() {}, nil
	}

	logPath := filepath.Join(filepath.Dir(dbPath), "chime.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(handler), func() { f.Close() }, nil
}

// snapshot aggregates the full engine state for the state_init message
// new websocket clients receive.
func snapshot(eng *engine.Engine) (any, error) {
	timers, err := eng.ActiveTimers()
	if err != nil {
		return nil, err
	}
	alarms, err := eng.Alarms()
	if err != nil {
		return nil, err
	}
	reminders, err := eng.Reminders()
	if err != nil {
		return nil, err
	}
	pomodoro, err := eng.PomodoroStatus()
	if err != nil {
		return nil, err
	}
	settings, err := eng.Settings()
	if err != nil {
		return nil, err
	}
	missed, err := eng.MissedItems()
	if err != nil {
		return nil, err
	}
	inhibited, inhibitItems := eng.InhibitStatus()
	return map[string]any{
		"timers":        timers,
		"alarms":        alarms,
		"reminders":     reminders,
		"pomodoro":      pomodoro,
		"settings":      settings,
		"missed_items":  missed,
		"gaming_active": eng.GamingActive(),
		"inhibit": map[string]any{
			"active": inhibited,
			"items":  inhibitItems,
		},
	}, nil
}

// newServer wires the websocket hub and the small REST surface used by
// external integrations (the gaming-activity push).
func newServer(addr string, h *hub.Hub, eng *engine.Engine) *http.Server {
	mux := http.NewServeMux()
	h.Register(mux, "/ws")

	mux.HandleFunc("POST /gaming", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Active bool `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := eng.SetGamingActive(body.Active); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
