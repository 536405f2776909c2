package service_test

import (
	"context"
	"crypto/sha1" //nolint:gosec // test fixture checksum
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"craftinstall/internal/config"
	"craftinstall/internal/software"
	"craftinstall/internal/util"
)

var jarBody = []byte("server jar")

// upstream serves a one-release Mojang manifest and its server jar
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	sum := sha1.Sum(jarBody) //nolint:gosec // test fixture checksum
	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"latest": {"release": "1.20.1"}, "versions": [
		  {"id": "1.20.1", "type": "release", "url": "%s/1.20.1.json", "releaseTime": "2023-06-12T13:25:51+00:00"}]}`, srv.URL)
	})
	mux.HandleFunc("/1.20.1.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"id": "1.20.1", "downloads": {"server": {"sha1": "%s", "url": "%s/server.jar"}}}`,
			hex.EncodeToString(sum[:]), srv.URL)
	})
	mux.HandleFunc("/server.jar", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(jarBody)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setup(t *testing.T) (*config.Config, *zap.Logger, context.Context) {
	t.Helper()
	srv := upstream(t)

	cfg := config.DefaultConfig()
	tmp := t.TempDir()
	cfg.Paths.Servers = filepath.Join(tmp, "servers")
	cfg.Paths.Cache = filepath.Join(tmp, "cache")
	cfg.Paths.Logs = filepath.Join(tmp, "logs")
	cfg.HTTP.MaxRetries = 0
	cfg.HTTP.CacheTTL = 0
	cfg.Install.StopTimeout = 5

	for _, p := range []string{cfg.Paths.Servers, cfg.Paths.Cache, cfg.Paths.Logs} {
		_ = os.MkdirAll(p, 0o750) //nolint:gosec // test directory permissions
	}

	cfg.Sources = config.SourcesConfig{MojangManifest: srv.URL + "/manifest.json"}
	for _, u := range []*string{
		&cfg.Sources.FabricMeta, &cfg.Sources.QuiltMeta, &cfg.Sources.QuiltInstallerRepo,
		&cfg.Sources.ForgeMaven, &cfg.Sources.NeoForgeMaven, &cfg.Sources.SpigotMaven,
		&cfg.Sources.PowerNukkitMaven, &cfg.Sources.PaperAPI, &cfg.Sources.BedrockManifest,
		&cfg.Sources.BedrockDownload, &cfg.Sources.BuildTools,
	} {
		*u = srv.URL + "/missing"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	return cfg, zap.NewNop(), ctx
}

func newRegistry(cfg *config.Config, logger *zap.Logger) (*util.HTTPClient, *software.Registry) {
	client := util.NewHTTPClient(cfg.HTTP, logger)
	return client, software.NewRegistry(software.NewDeps(cfg, client, logger))
}
