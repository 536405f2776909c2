// Package service defines the business logic and external integrations for craftinstall.
package service

import (
	"context"
	"io"

	"craftinstall/internal/domain"
	"craftinstall/internal/server"
	"craftinstall/internal/task"
)

// InstallManager defines catalog queries and server installs.
type InstallManager interface {
	Versions(ctx context.Context, family string) ([]string, error)
	Builds(ctx context.Context, family, version string) ([]domain.BuildEntry, error)
	LoaderVersions(ctx context.Context, family string) ([]string, error)
	Reload(ctx context.Context, family string) (bool, error)
	Install(ctx context.Context, opts InstallOptions) (*server.Instance, *task.Task, error)
	HealthCheck(ctx context.Context) []domain.HealthCheck
}

// ServerManager defines operations on installed server directories.
type ServerManager interface {
	Info(dir string) (*ServerInfo, error)
	Run(ctx context.Context, dir string, console io.Reader, output func(string)) error
	HealthCheck(ctx context.Context) []domain.HealthCheck
}

// InstallReport describes an install that has reached its outcome
type InstallReport struct {
	Family        domain.Family
	Dir           string
	Build         string
	LoaderVersion string
	Task          *task.Task
}

// Notifier defines operations for sending alerts and status updates.
type Notifier interface {
	SendSuccess(ctx context.Context, message string) error
	SendError(ctx context.Context, message string) error
	InstallFinished(ctx context.Context, report InstallReport) error
	HealthCheck(ctx context.Context) []domain.HealthCheck
}

// Ensure compile-time interface satisfaction.
var (
	_ InstallManager = (*Installs)(nil)
	_ ServerManager  = (*Server)(nil)
	_ Notifier       = (*Notification)(nil)
)
