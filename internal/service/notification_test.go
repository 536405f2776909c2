package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"craftinstall/internal/config"
	"craftinstall/internal/domain"
	"craftinstall/internal/service"
	"craftinstall/internal/task"
)

type webhook struct {
	*httptest.Server
	mu     sync.Mutex
	titles []string
	bodies []string
	fields []map[string]string
}

func newWebhook(t *testing.T) *webhook {
	t.Helper()
	w := &webhook{}
	w.Server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var payload struct {
			Embeds []struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				Fields      []struct {
					Name  string `json:"name"`
					Value string `json:"value"`
				} `json:"fields"`
			} `json:"embeds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.Embeds) != 1 {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		w.mu.Lock()
		w.titles = append(w.titles, payload.Embeds[0].Title)
		w.bodies = append(w.bodies, payload.Embeds[0].Description)
		fields := make(map[string]string)
		for _, f := range payload.Embeds[0].Fields {
			fields[f.Name] = f.Value
		}
		w.fields = append(w.fields, fields)
		w.mu.Unlock()
		rw.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(w.Close)
	return w
}

func TestNewNotification(t *testing.T) {
	cfg := config.DefaultConfig()
	logger := zap.NewNop()

	svc := service.NewNotification(cfg, logger)
	if svc == nil {
		t.Fatal("NewNotification returned nil")
	}
}

func TestNotificationNoWebhook(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Notifications.DiscordWebhook = ""
	cfg.Notifications.SuccessNotifications = true
	cfg.Notifications.ErrorNotifications = true
	logger := zap.NewNop()
	svc := service.NewNotification(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Should succeed even without webhook (just skip)
	if err := svc.SendSuccess(ctx, "test"); err != nil {
		t.Errorf("SendSuccess should not fail without webhook: %v", err)
	}
}

func TestNotificationDisabled(t *testing.T) {
	hook := newWebhook(t)
	cfg := config.DefaultConfig()
	cfg.Notifications.DiscordWebhook = hook.URL
	cfg.Notifications.SuccessNotifications = false
	cfg.Notifications.ErrorNotifications = false
	logger := zap.NewNop()
	svc := service.NewNotification(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Should succeed because notifications are disabled
	if err := svc.SendSuccess(ctx, "test"); err != nil {
		t.Errorf("SendSuccess should succeed when disabled: %v", err)
	}
	if err := svc.SendError(ctx, "test"); err != nil {
		t.Errorf("SendError should succeed when disabled: %v", err)
	}
	if len(hook.titles) != 0 {
		t.Errorf("disabled notifications were sent: %v", hook.titles)
	}
}

func TestNotificationInstallFinished(t *testing.T) {
	hook := newWebhook(t)
	cfg := config.DefaultConfig()
	cfg.Notifications.DiscordWebhook = hook.URL
	svc := service.NewNotification(cfg, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := task.New(ctx, "/srv/a", "1.20.1")
	done.Finish(nil)
	failed := task.New(ctx, "/srv/b", "1.20.1")
	failed.ChangeStatusPercentage(task.ProcessStatus("Running forge-1.20.1-47.2.0-installer.jar"), 62)
	failed.Fail(errors.New("installer exited with status 1"))
	cancelled := task.New(ctx, "/srv/c", "1.20.1")
	cancelled.Cancel()
	cancelled.Fail(context.Canceled)

	reports := []service.InstallReport{
		{Family: domain.FamilyPaper, Dir: done.Server, Build: "196", Task: done},
		{Family: domain.FamilyForge, Dir: failed.Server, Task: failed},
		{Family: domain.FamilyPaper, Dir: cancelled.Server, Task: cancelled},
	}
	for _, r := range reports {
		if err := svc.InstallFinished(ctx, r); err != nil {
			t.Fatalf("InstallFinished: %v", err)
		}
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.titles) != 2 || hook.titles[0] != "Install finished" || hook.titles[1] != "Install failed" {
		t.Fatalf("unexpected notifications: %v", hook.titles)
	}
	if !strings.Contains(hook.bodies[1], "status 1") {
		t.Errorf("error notification lacks cause: %s", hook.bodies[1])
	}

	success := hook.fields[0]
	if success["Family"] != "paper" || success["Version"] != "1.20.1" || success["Build"] != "196" {
		t.Errorf("success fields = %v", success)
	}
	if success["Task"] != done.ID.String() {
		t.Errorf("task field = %q, want %s", success["Task"], done.ID)
	}
	if _, ok := success["Stage"]; ok {
		t.Error("finished install should not report a stage")
	}

	failure := hook.fields[1]
	if failure["Family"] != "forge" || failure["Server"] != "`/srv/b`" {
		t.Errorf("failure fields = %v", failure)
	}
	if !strings.Contains(failure["Stage"], "installer.jar") || failure["Progress"] != "62%" {
		t.Errorf("failure stage = %q progress = %q", failure["Stage"], failure["Progress"])
	}
}

func TestNotificationInstallFinishedRespectsSettings(t *testing.T) {
	hook := newWebhook(t)
	cfg := config.DefaultConfig()
	cfg.Notifications.DiscordWebhook = hook.URL
	cfg.Notifications.SuccessNotifications = false
	svc := service.NewNotification(cfg, zap.NewNop())
	ctx := context.Background()

	done := task.New(ctx, "/srv/a", "1.20.1")
	done.Finish(nil)
	if err := svc.InstallFinished(ctx, service.InstallReport{Family: domain.FamilyVanilla, Dir: "/srv/a", Task: done}); err != nil {
		t.Fatalf("InstallFinished: %v", err)
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.titles) != 0 {
		t.Errorf("disabled success alert was sent: %v", hook.titles)
	}
}

func TestNotificationWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Notifications.DiscordWebhook = srv.URL
	svc := service.NewNotification(cfg, zap.NewNop())

	var apiErr *domain.APIError
	if err := svc.SendError(context.Background(), "boom"); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected APIError 429, got %v", err)
	}
}

func TestNotificationHealthCheck(t *testing.T) {
	cfg := config.DefaultConfig()
	logger := zap.NewNop()
	svc := service.NewNotification(cfg, logger)

	ctx := context.Background()
	checks := svc.HealthCheck(ctx)
	if len(checks) == 0 {
		t.Error("HealthCheck should return checks")
	}
	if checks[0].Status != domain.StatusWarn {
		t.Errorf("unconfigured webhook should warn, got %s", checks[0].Status)
	}

	cfg.Notifications.DiscordWebhook = "https://discordapp.com/api/webhooks/1/abc"
	cfg.Notifications.SuccessNotifications = false
	checks = svc.HealthCheck(ctx)
	if checks[0].Status != domain.StatusOK {
		t.Errorf("legacy webhook host should be accepted, got %s", checks[0].Status)
	}
	if checks[1].Message != "On failed installs" {
		t.Errorf("settings message = %q", checks[1].Message)
	}
}

func TestNotificationInterface(t *testing.T) {
	cfg := config.DefaultConfig()
	logger := zap.NewNop()
	var _ service.Notifier = service.NewNotification(cfg, logger)
}
