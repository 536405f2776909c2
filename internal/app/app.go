// Package app wires configuration, logging and services into one container.
package app

import (
	"go.uber.org/zap"

	"craftinstall/internal/config"
	"craftinstall/internal/service"
	"craftinstall/internal/software"
	"craftinstall/internal/ui"
	"craftinstall/internal/util"
)

// App is the application container holding all dependencies
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Terminal     *ui.Terminal
	HTTP         *util.HTTPClient
	Registry     *software.Registry
	Installs     *service.Installs
	Server       service.ServerManager
	Notification service.Notifier
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) *App {
	logger := util.NewLogger(cfg)
	return NewWithLogger(cfg, logger, ui.NewTerminal())
}

// NewWithLogger builds the container around an existing logger and terminal
func NewWithLogger(cfg *config.Config, logger *zap.Logger, terminal *ui.Terminal) *App {
	client := util.NewHTTPClient(cfg.HTTP, logger)
	registry := software.NewRegistry(software.NewDeps(cfg, client, logger))
	notification := service.NewNotification(cfg, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Terminal:     terminal,
		HTTP:         client,
		Registry:     registry,
		Installs:     service.NewInstalls(cfg, client, registry, notification, logger),
		Server:       service.NewServer(cfg, registry, logger),
		Notification: notification,
	}
}

// Close waits for pending notifications and flushes the logger
func (a *App) Close() {
	if a.Installs != nil {
		a.Installs.Wait()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
