package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"craftinstall/internal/domain"
	"craftinstall/internal/server"
	"craftinstall/internal/service"
	"craftinstall/internal/task"
)

type recordingNotifier struct {
	mu       sync.Mutex
	finished []task.Outcome
}

func (n *recordingNotifier) SendSuccess(context.Context, string) error { return nil }
func (n *recordingNotifier) SendError(context.Context, string) error   { return nil }
func (n *recordingNotifier) HealthCheck(context.Context) []domain.HealthCheck {
	return nil
}

func (n *recordingNotifier) InstallFinished(_ context.Context, report service.InstallReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, report.Task.Snapshot().Outcome)
	return nil
}

func TestInstalls_Versions(t *testing.T) {
	cfg, logger, ctx := setup(t)
	client, reg := newRegistry(cfg, logger)
	svc := service.NewInstalls(cfg, client, reg, nil, logger)

	versions, err := svc.Versions(ctx, "Vanilla")
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 1 || versions[0] != "1.20.1" {
		t.Errorf("unexpected versions: %v", versions)
	}

	versions, err = svc.Versions(ctx, "paper")
	if err != nil || len(versions) != 0 {
		t.Errorf("unavailable catalog should be empty, got %v, %v", versions, err)
	}

	if _, err := svc.Versions(ctx, "bukkit"); !errors.Is(err, domain.ErrUnsupportedFamily) {
		t.Errorf("expected ErrUnsupportedFamily, got %v", err)
	}
	if _, err := svc.Builds(ctx, "vanilla", "1.20.1"); !errors.Is(err, domain.ErrUnsupportedFamily) {
		t.Errorf("vanilla has no builds, got %v", err)
	}
	if _, err := svc.LoaderVersions(ctx, "forge"); !errors.Is(err, domain.ErrUnsupportedFamily) {
		t.Errorf("forge has no loader list, got %v", err)
	}
	if ok, err := svc.Reload(ctx, "vanilla"); err != nil || !ok {
		t.Errorf("Reload failed: %v %v", ok, err)
	}
}

func TestInstalls_Install(t *testing.T) {
	cfg, logger, ctx := setup(t)
	client, reg := newRegistry(cfg, logger)
	notifier := &recordingNotifier{}
	svc := service.NewInstalls(cfg, client, reg, notifier, logger)

	inst, tk, err := svc.Install(ctx, service.InstallOptions{Family: "vanilla", Version: "1.20.1"})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if err := tk.Wait(ctx); err != nil {
		t.Fatalf("install task failed: %v", err)
	}
	svc.Wait()

	want := filepath.Join(cfg.Paths.Servers, "vanilla-1.20.1")
	if inst.Dir() != want {
		t.Errorf("Dir = %s, want %s", inst.Dir(), want)
	}
	if got := inst.Record().GetString(server.KeyVersion); got != "1.20.1" {
		t.Errorf("recorded version = %q", got)
	}
	if _, err := os.Stat(filepath.Join(want, "server.jar")); err != nil {
		t.Errorf("server.jar missing: %v", err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.finished) != 1 || notifier.finished[0] != task.Finished {
		t.Errorf("unexpected notifications: %v", notifier.finished)
	}
}

func TestInstalls_InstallRejectsBadInput(t *testing.T) {
	cfg, logger, ctx := setup(t)
	client, reg := newRegistry(cfg, logger)
	svc := service.NewInstalls(cfg, client, reg, nil, logger)

	if _, _, err := svc.Install(ctx, service.InstallOptions{Family: "vanilla", Version: "0.0.1"}); !errors.Is(err, domain.ErrVersionNotFound) {
		t.Errorf("expected ErrVersionNotFound, got %v", err)
	}
	_, _, err := svc.Install(ctx, service.InstallOptions{Family: "vanilla", Version: "1.20.1", OnHashMismatch: "shrug"})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestHashPolicy(t *testing.T) {
	tests := []struct {
		decision string
		retries  int
		want     []domain.ValidateDecision
	}{
		{"abort", 3, []domain.ValidateDecision{domain.DecisionAbort}},
		{"ignore", 3, []domain.ValidateDecision{domain.DecisionIgnore, domain.DecisionIgnore}},
		{"retry", 2, []domain.ValidateDecision{domain.DecisionRetry, domain.DecisionRetry, domain.DecisionAbort}},
		{"retry", 0, []domain.ValidateDecision{domain.DecisionAbort}},
	}

	for _, tt := range tests {
		policy, err := service.NewHashPolicy(tt.decision, tt.retries, zap.NewNop())
		if err != nil {
			t.Fatalf("NewHashPolicy(%s): %v", tt.decision, err)
		}
		for i, want := range tt.want {
			if got := policy.Decide("server.jar", nil, nil); got != want {
				t.Errorf("%s/%d: call %d = %s, want %s", tt.decision, tt.retries, i, got, want)
			}
		}
	}

	policy, _ := service.NewHashPolicy("retry", 1, zap.NewNop())
	policy.Decide("a.jar", nil, nil)
	if got := policy.Decide("b.jar", nil, nil); got != domain.DecisionRetry {
		t.Errorf("retries are counted per file, got %s", got)
	}
}

func TestInstallsHealthCheck(t *testing.T) {
	cfg, logger, ctx := setup(t)
	client, reg := newRegistry(cfg, logger)
	svc := service.NewInstalls(cfg, client, reg, nil, logger)

	checks := svc.HealthCheck(ctx)
	if len(checks) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(checks))
	}
	for _, c := range checks[:2] {
		if c.Status != domain.StatusOK {
			t.Errorf("%s: %s (%s)", c.Name, c.Status, c.Message)
		}
	}
	if checks[2].Status != domain.StatusWarn {
		t.Errorf("catalogs should be partially available, got %s", checks[2].Status)
	}
}
