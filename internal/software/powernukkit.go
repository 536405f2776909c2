package software

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"craftinstall/internal/catalog"
	"craftinstall/internal/domain"
	"craftinstall/internal/download"
	"craftinstall/internal/server"
	"craftinstall/internal/task"
)

const powerNukkitJar = "powernukkit.jar"

// PowerNukkit installs the shaded PowerNukkit jar from Maven
type PowerNukkit struct {
	base
	catalog      *catalog.MavenVersions
	artifactBase string
}

var _ Context = (*PowerNukkit)(nil)

// NewPowerNukkit creates the PowerNukkit family
func NewPowerNukkit(deps Deps, versions *catalog.MavenVersions, artifactBase string) *PowerNukkit {
	p := &PowerNukkit{
		base:         newBase(domain.FamilyPowerNukkit, deps),
		catalog:      versions,
		artifactBase: strings.TrimSuffix(artifactBase, "/"),
	}
	p.self = p
	return p
}

// Catalog returns the PowerNukkit catalog
func (p *PowerNukkit) Catalog() catalog.Catalog { return p.catalog }

// Versions lists PowerNukkit releases, newest first
func (p *PowerNukkit) Versions(ctx context.Context) []string { return p.catalog.Versions(ctx) }

// ArtifactURL returns the shaded jar location of a version
func (p *PowerNukkit) ArtifactURL(version string) string {
	return fmt.Sprintf("%s/%s/powernukkit-%s-shaded.jar", p.artifactBase, version, version)
}

// NewInstallTask downloads the shaded jar, verified by its .sha1 sidecar
func (p *PowerNukkit) NewInstallTask(ctx context.Context, inst *server.Instance, req server.InstallRequest) (*task.Task, error) {
	if err := requireVersion(p.family, p.catalog.Versions(ctx), req.Version); err != nil {
		return nil, err
	}
	url := p.ArtifactURL(req.Version)

	return p.start(ctx, inst, req, func(t *task.Task) (map[string]any, error) {
		ctx := t.Context()
		alg, sum := p.sidecarSHA1(ctx, url)
		t.ChangeStatusPercentage(task.DownloadStatus(url), 0)
		err := p.deps.Downloader.DownloadFile(ctx, download.Request{
			URL:      url,
			Target:   filepath.Join(inst.Dir(), powerNukkitJar),
			Hash:     alg,
			Expected: sum,
		}, t)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			server.KeyVersion:       req.Version,
			server.KeyBuild:         nil,
			server.KeyLoaderVersion: nil,
		}, nil
	}), nil
}

// LaunchCommand runs the PowerNukkit jar, which takes no nogui flag
func (p *PowerNukkit) LaunchCommand(inst *server.Instance) (server.LaunchSpec, error) {
	return launchJar(inst, powerNukkitJar, false)
}
