package software

import (
	"context"
	"fmt"
	"path/filepath"

	"craftinstall/internal/catalog"
	"craftinstall/internal/domain"
	"craftinstall/internal/download"
	"craftinstall/internal/manifest"
	"craftinstall/internal/server"
	"craftinstall/internal/task"
	"craftinstall/internal/util"
)

// Vanilla installs Mojang's dedicated server jar
type Vanilla struct {
	base
	catalog *catalog.Mojang
}

var _ Context = (*Vanilla)(nil)

// NewVanilla creates the vanilla family
func NewVanilla(deps Deps, mojang *catalog.Mojang) *Vanilla {
	v := &Vanilla{base: newBase(domain.FamilyVanilla, deps), catalog: mojang}
	v.self = v
	return v
}

// Catalog returns the Mojang catalog
func (v *Vanilla) Catalog() catalog.Catalog { return v.catalog }

// Versions lists every Mojang version, newest first
func (v *Vanilla) Versions(ctx context.Context) []string { return v.catalog.Versions(ctx) }

// NewInstallTask downloads server.jar and verifies its SHA-1
func (v *Vanilla) NewInstallTask(ctx context.Context, inst *server.Instance, req server.InstallRequest) (*task.Task, error) {
	if err := requireVersion(v.family, v.catalog.Versions(ctx), req.Version); err != nil {
		return nil, err
	}
	entry, _ := v.catalog.Entry(ctx, req.Version)

	return v.start(ctx, inst, req, func(t *task.Task) (map[string]any, error) {
		ctx := t.Context()
		data, err := v.deps.Fetcher.GetBytes(ctx, entry.ManifestURL)
		if err != nil {
			return nil, fmt.Errorf("version document: %w", err)
		}
		detail, err := manifest.ParseMojangVersion(data)
		if err != nil {
			return nil, err
		}
		artifact := detail.Downloads.Server
		if artifact == nil || artifact.URL == "" {
			return nil, fmt.Errorf("%s has no dedicated server download: %w", req.Version, domain.ErrVersionNotFound)
		}

		dl := download.Request{
			URL:    artifact.URL,
			Target: filepath.Join(inst.Dir(), serverJar),
		}
		if sum, err := util.HexToBytes(artifact.SHA1); err == nil {
			dl.Hash, dl.Expected = util.HashSHA1, sum
		}
		t.ChangeStatusPercentage(task.DownloadStatus(artifact.URL), 0)
		if err := v.deps.Downloader.DownloadFile(ctx, dl, t); err != nil {
			return nil, err
		}
		return map[string]any{
			server.KeyVersion:       req.Version,
			server.KeyBuild:         nil,
			server.KeyLoaderVersion: nil,
		}, nil
	}), nil
}

// LaunchCommand runs server.jar
func (v *Vanilla) LaunchCommand(inst *server.Instance) (server.LaunchSpec, error) {
	return launchJar(inst, serverJar, true)
}
