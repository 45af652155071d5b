package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/jwebster45206/adventure-engine/internal/logger"
	"github.com/jwebster45206/adventure-engine/internal/services"
	"github.com/jwebster45206/adventure-engine/internal/storage"
	"github.com/jwebster45206/adventure-engine/pkg/content"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/persistence"
	"github.com/jwebster45206/adventure-engine/pkg/state"
	pstorage "github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/textfilter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
		log.Fatalf("failed to create save directory: %v", err)
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.SaveDir, "console.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer func() {
		_ = logFile.Close() // Ignore error in defer
	}()
	// The UI owns stdout, so logs go to a file.
	lg := logger.New(logFile, cfg)

	if !testConnection(cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to the proxy at %s. Please ensure it is running.\nTry: docker-compose up -d\n", cfg.APIBaseURL)
		os.Exit(1)
	}

	store, err := openStorage(cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open save storage: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	client := content.NewClient(services.NewProxyProvider(cfg.APIBaseURL, lg), lg,
		content.WithTimeout(cfg.RequestTimeout),
		content.WithFilter(textfilter.ForRating(cfg.ContentRating)))

	var program *tea.Program
	ctrl := game.NewController(
		state.NewGameState(cfg.ImagesEnabled),
		game.NewMachine(cfg.ContentRating),
		client,
		lg,
		game.WithPersistence(persistence.NewGateway(store, cfg.Profile, lg)),
		game.WithObserver(func(gs *state.GameState) {
			if program != nil {
				program.Send(stateMsg{gs})
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program = tea.NewProgram(NewConsoleUI(ctx, ctrl, cfg.SaveDir),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
	cancel()
	ctrl.Wait()
}

func openStorage(cfg *config.Config, lg *slog.Logger) (pstorage.Storage, error) {
	if cfg.RedisURL == "" {
		return storage.NewFileStorage(cfg.SaveDir, lg)
	}
	rs, err := storage.NewRedisStorage(cfg.RedisURL, lg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rs.WaitForConnection(ctx, 5, time.Second); err != nil {
		_ = rs.Close()
		return nil, err
	}
	return rs, nil
}

func testConnection(baseURL string) bool {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}
