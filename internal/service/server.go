package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"craftinstall/internal/config"
	"craftinstall/internal/domain"
	"craftinstall/internal/server"
	"craftinstall/internal/software"
	"craftinstall/internal/util"
)

const resourceInterval = time.Minute

// ServerInfo describes an installed server directory
type ServerInfo struct {
	Dir           string
	Family        domain.Family
	Version       string
	Build         string
	LoaderVersion string
	JavaPath      string
	Launch        string
	LaunchErr     error
}

// Server implements ServerManager
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *software.Registry
}

var _ ServerManager = (*Server)(nil)

// NewServer creates a new server service
func NewServer(cfg *config.Config, registry *software.Registry, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger, registry: registry}
}

// Info reads the server record and resolves the launch command
func (s *Server) Info(dir string) (*ServerInfo, error) {
	inst, err := s.registry.OpenServerInstance(dir)
	if err != nil {
		return nil, err
	}
	rec := inst.Record()
	info := &ServerInfo{
		Dir:           inst.Dir(),
		Family:        inst.Family(),
		Version:       rec.GetString(server.KeyVersion),
		Build:         rec.GetString(server.KeyBuild),
		LoaderVersion: rec.GetString(server.KeyLoaderVersion),
		JavaPath:      inst.JavaPath(),
	}

	c, err := s.registry.Get(inst.Family())
	if err != nil {
		return nil, err
	}
	if info.Version == "" {
		info.LaunchErr = domain.ErrNotInstalled
		return info, nil
	}
	spec, err := c.LaunchCommand(inst)
	if err != nil {
		info.LaunchErr = err
		return info, nil
	}
	info.Launch = spec.String()
	return info, nil
}

// Run starts the server in dir and forwards its console until it exits.
// Lines read from console are sent as server commands. Cancelling ctx stops
// the server gracefully.
func (s *Server) Run(ctx context.Context, dir string, console io.Reader, output func(string)) error {
	inst, err := s.registry.OpenServerInstance(dir)
	if err != nil {
		return err
	}
	p, err := inst.Start()
	if err != nil {
		return domain.NewServiceError("server", "start", err)
	}
	s.logger.Info("Server started", zap.String("dir", inst.Dir()), zap.Int("pid", p.PID()))

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for line := range p.Messages() {
			if output != nil {
				output(line)
			}
		}
	}()

	if console != nil {
		go func() {
			sc := bufio.NewScanner(console)
			for sc.Scan() {
				cmd := strings.TrimSpace(sc.Text())
				if cmd == "" {
					continue
				}
				if err := p.InputCommand(cmd); err != nil {
					return
				}
			}
		}()
	}

	ticker := time.NewTicker(resourceInterval)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-p.Done():
			break wait
		case <-ticker.C:
			s.logResources(p.PID())
		case <-ctx.Done():
			s.logger.Info("Stopping server", zap.String("dir", inst.Dir()))
			if err := inst.Stop(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, domain.ErrServerNotRunning) {
				return domain.NewServiceError("server", "stop", err)
			}
			<-p.Done()
			break wait
		}
	}
	<-forwarded

	if ctx.Err() != nil {
		return nil
	}
	if err := p.Err(); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	s.logger.Info("Server exited", zap.String("dir", inst.Dir()))
	return nil
}

// logResources records the memory, CPU and thread use of the server process
func (s *Server) logResources(pid int) {
	info, err := util.InspectProcess(pid)
	if err != nil {
		s.logger.Debug("Failed to inspect server process", zap.Int("pid", pid), zap.Error(err))
		return
	}
	s.logger.Info("Server resources",
		zap.Int("pid", info.PID),
		zap.Uint64("rss_bytes", info.RSSBytes),
		zap.Float64("cpu_percent", info.CPUPercent),
		zap.Int32("threads", info.Threads))
}

// HealthCheck performs health checks
func (s *Server) HealthCheck(ctx context.Context) []domain.HealthCheck {
	checks := make([]domain.HealthCheck, 0, 3)
	checks = append(checks, domain.CheckPath("Cache directory", s.cfg.Paths.Cache))
	checks = append(checks, s.checkServers())
	checks = append(checks, util.CheckBinary(ctx, s.cfg.Java.Path, "Java Runtime"))
	return checks
}

// checkServers counts installed servers under the server root
func (s *Server) checkServers() domain.HealthCheck {
	entries, err := os.ReadDir(s.cfg.Paths.Servers)
	if err != nil {
		return domain.HealthCheck{Name: "Installed servers", Status: domain.StatusWarn, Message: "Server root not found"}
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.cfg.Paths.Servers, e.Name(), server.RecordFile)); err == nil {
			count++
		}
	}
	return domain.HealthCheck{Name: "Installed servers", Status: domain.StatusOK, Message: fmt.Sprintf("%d found", count)}
}
