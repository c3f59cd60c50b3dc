// app.go
package main

import (
	"context"
	"fmt"
	"log"

	"pageforge/internal/agent"
	"pageforge/internal/checkpoint"
	"pageforge/internal/config"
	"pageforge/internal/coordinator"
	"pageforge/internal/database"
	"pageforge/internal/eventhub"
	"pageforge/internal/git"
	"pageforge/internal/websocket"
)

// App wires the server's components together and owns their lifecycles
type App struct {
	config      *config.Config
	projectDir  string
	db          *database.Database
	repo        *git.Repo
	checkpoints *checkpoint.Manager
	store       *checkpoint.Store
	hub         *eventhub.EventHub
	gitWatcher  *git.Watcher
	coordinator *coordinator.Coordinator
	wsServer    *websocket.Server
}

// NewApp creates the application for the given project directory
func NewApp(projectDir string) *App {
	return &App{projectDir: projectDir}
}

// Startup initializes every component and starts serving
func (a *App) Startup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.config = cfg

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Printf("[App] Run log unavailable: %v", err)
	} else {
		a.db = db
	}

	a.hub = eventhub.New()
	a.repo = git.New(a.projectDir)

	a.store = checkpoint.NewStore(cfg.StateDir(a.projectDir), cfg.Settings.CompressionLevel)
	a.checkpoints = checkpoint.NewManager(a.repo, a.store)
	if err := a.checkpoints.Initialize(); err != nil {
		return fmt.Errorf("initialize checkpoints: %w", err)
	}

	runner := agent.NewCLIRunner(cfg.Settings.AgentBinary)
	a.coordinator = coordinator.New(coordinator.Config{
		ProjectDir:      a.projectDir,
		DisconnectGrace: cfg.Settings.DisconnectGrace,
		DefaultAgent:    cfg.Settings.AgentBinary,
	}, coordinator.Deps{
		Checkpoints: a.checkpoints,
		Store:       a.store,
		Runner:      runner,
		NewSession: func(projectDir string) (coordinator.AgentSession, error) {
			return runner.CreateSession(projectDir)
		},
		Hub: a.hub,
		DB:  a.db,
	})

	if err := a.coordinator.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}

	a.wsServer = websocket.NewServer(a.coordinator, cfg.Settings.Port, cfg.Settings.PingInterval)
	a.hub.SetBroadcaster(a.wsServer)

	if _, err := a.wsServer.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	a.gitWatcher = git.NewWatcher(a.repo, a.hub)
	if err := a.gitWatcher.Start(); err != nil {
		// Not fatal: checkpoints still work, clients just miss live updates
		log.Printf("[App] Git watcher unavailable: %v", err)
	}

	log.Printf("[App] Serving project %s on port %d", a.projectDir, a.wsServer.Port())
	return nil
}

// Shutdown stops the components in reverse order
func (a *App) Shutdown(ctx context.Context) {
	if a.gitWatcher != nil {
		a.gitWatcher.Close()
	}
	if a.wsServer != nil {
		if err := a.wsServer.Stop(ctx); err != nil {
			log.Printf("[App] Server shutdown: %v", err)
		}
	}
	if a.coordinator != nil {
		a.coordinator.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
}
