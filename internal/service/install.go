package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"craftinstall/internal/config"
	"craftinstall/internal/domain"
	"craftinstall/internal/server"
	"craftinstall/internal/software"
	"craftinstall/internal/task"
	"craftinstall/internal/util"
)

// InstallOptions describe one install request. Dir defaults to
// <paths.servers>/<family>-<version>.
type InstallOptions struct {
	Family        string
	Version       string
	Build         string
	LoaderVersion string
	Dir           string
	// OnHashMismatch overrides install.on_hash_mismatch when set
	OnHashMismatch string
	Observer       task.Observer
}

// Installs resolves versions through the software registry and runs installs
type Installs struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *util.HTTPClient
	registry *software.Registry
	notifier Notifier

	pending sync.WaitGroup
}

var _ InstallManager = (*Installs)(nil)

// NewInstalls creates the install service. notifier may be nil.
func NewInstalls(cfg *config.Config, client *util.HTTPClient, registry *software.Registry, notifier Notifier, logger *zap.Logger) *Installs {
	return &Installs{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		registry: registry,
		notifier: notifier,
	}
}

// Versions lists the versions of a family, newest first. An unavailable
// catalog yields an empty list.
func (s *Installs) Versions(ctx context.Context, family string) ([]string, error) {
	c, err := s.registry.Lookup(family)
	if err != nil {
		return nil, err
	}
	return c.Versions(ctx), nil
}

// Builds lists the builds of a version for families that publish several
func (s *Installs) Builds(ctx context.Context, family, version string) ([]domain.BuildEntry, error) {
	c, err := s.registry.Lookup(family)
	if err != nil {
		return nil, err
	}
	bl, ok := c.(software.BuildLike)
	if !ok {
		return nil, fmt.Errorf("%s does not publish builds: %w", c.Family(), domain.ErrUnsupportedFamily)
	}
	return bl.Builds(ctx, version), nil
}

// LoaderVersions lists mod loader versions for Fabric-like families
func (s *Installs) LoaderVersions(ctx context.Context, family string) ([]string, error) {
	c, err := s.registry.Lookup(family)
	if err != nil {
		return nil, err
	}
	fl, ok := c.(software.FabricLike)
	if !ok {
		return nil, fmt.Errorf("%s has no separate loader: %w", c.Family(), domain.ErrUnsupportedFamily)
	}
	return fl.LoaderVersions(ctx), nil
}

// Reload discards a family's catalog and fetches it again
func (s *Installs) Reload(ctx context.Context, family string) (bool, error) {
	c, err := s.registry.Lookup(family)
	if err != nil {
		return false, err
	}
	return c.Catalog().Reload(ctx), nil
}

// Install creates or opens the server directory and starts the install. The
// returned task completes in the background; its outcome is sent to the
// notifier.
func (s *Installs) Install(ctx context.Context, opts InstallOptions) (*server.Instance, *task.Task, error) {
	family, err := domain.ParseFamily(opts.Family)
	if err != nil {
		return nil, nil, err
	}
	decision := s.cfg.Install.OnHashMismatch
	if opts.OnHashMismatch != "" {
		decision = opts.OnHashMismatch
	}
	policy, err := NewHashPolicy(decision, s.cfg.Install.MaxHashRetries, s.logger)
	if err != nil {
		return nil, nil, err
	}

	dir := opts.Dir
	if dir == "" {
		dir = filepath.Join(s.cfg.Paths.Servers, fmt.Sprintf("%s-%s", family, opts.Version))
	}
	inst, err := s.registry.CreateServerInstance(dir, family)
	if err != nil {
		return nil, nil, domain.NewServiceError("install", "open", err)
	}

	t, err := inst.Install(ctx, server.InstallRequest{
		Version:       opts.Version,
		Build:         opts.Build,
		LoaderVersion: opts.LoaderVersion,
		Validate:      policy.Decide,
		Observer:      opts.Observer,
	})
	if err != nil {
		return inst, nil, err
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		<-t.Done()
		s.notify(context.WithoutCancel(ctx), newInstallReport(family, inst, t))
	}()
	return inst, t, nil
}

// Wait blocks until notifications of finished installs have been sent
func (s *Installs) Wait() {
	s.pending.Wait()
}

// newInstallReport reads the committed build fields of a finished install
func newInstallReport(family domain.Family, inst *server.Instance, t *task.Task) InstallReport {
	report := InstallReport{Family: family, Dir: inst.Dir(), Task: t}
	if t.Snapshot().Outcome == task.Finished {
		report.Build = inst.Record().GetString(server.KeyBuild)
		report.LoaderVersion = inst.Record().GetString(server.KeyLoaderVersion)
	}
	return report
}

func (s *Installs) notify(ctx context.Context, report InstallReport) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.notifier.InstallFinished(ctx, report); err != nil {
		s.logger.Warn("Failed to send install notification", zap.Error(err))
	}
}

// HealthCheck reports the server root, the vanilla manifest and the state of
// every catalog.
func (s *Installs) HealthCheck(ctx context.Context) []domain.HealthCheck {
	checks := []domain.HealthCheck{
		domain.CheckPath("Server root", s.cfg.Paths.Servers),
		util.CheckURL(ctx, s.client, s.cfg.Sources.MojangManifest, "Mojang manifest"),
	}

	warm := s.registry.Warm(ctx)
	var down []string
	for _, f := range domain.Families {
		if !warm[f] {
			down = append(down, string(f))
		}
	}
	switch {
	case len(down) == 0:
		checks = append(checks, domain.HealthCheck{Name: "Catalogs", Status: domain.StatusOK, Message: "All available"})
	case len(down) == len(domain.Families):
		checks = append(checks, domain.HealthCheck{Name: "Catalogs", Status: domain.StatusError, Message: "None available"})
	default:
		checks = append(checks, domain.HealthCheck{
			Name:    "Catalogs",
			Status:  domain.StatusWarn,
			Message: "Unavailable: " + strings.Join(down, ", "),
		})
	}
	return checks
}

// HashPolicy answers checksum mismatches with a fixed decision. Retries are
// capped per file; once the cap is reached the install aborts.
type HashPolicy struct {
	decision   domain.ValidateDecision
	maxRetries int
	logger     *zap.Logger

	mu      sync.Mutex
	retries map[string]int
}

// NewHashPolicy parses decision (retry, ignore or abort)
func NewHashPolicy(decision string, maxRetries int, logger *zap.Logger) (*HashPolicy, error) {
	d, err := domain.ParseValidateDecision(decision)
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidConfig, err)
	}
	return &HashPolicy{
		decision:   d,
		maxRetries: maxRetries,
		logger:     logger,
		retries:    make(map[string]int),
	}, nil
}

// Decide implements task.ValidateFunc
func (p *HashPolicy) Decide(file string, _, _ []byte) domain.ValidateDecision {
	if p.decision != domain.DecisionRetry {
		return p.decision
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.retries[file] >= p.maxRetries {
		p.logger.Warn("Checksum retries exhausted", zap.String("file", file), zap.Int("retries", p.retries[file]))
		return domain.DecisionAbort
	}
	p.retries[file]++
	return domain.DecisionRetry
}
