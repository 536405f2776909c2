package software

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"craftinstall/internal/catalog"
	"craftinstall/internal/domain"
	"craftinstall/internal/download"
	"craftinstall/internal/server"
	"craftinstall/internal/task"
	"craftinstall/internal/util"
)

// Paper installs Paper builds from the fill API
type Paper struct {
	base
	catalog *catalog.Paper
}

var _ BuildLike = (*Paper)(nil)

// NewPaper creates the Paper family
func NewPaper(deps Deps, paper *catalog.Paper) *Paper {
	p := &Paper{base: newBase(domain.FamilyPaper, deps), catalog: paper}
	p.self = p
	return p
}

// Catalog returns the Paper catalog
func (p *Paper) Catalog() catalog.Catalog { return p.catalog }

// Versions lists Paper versions, newest first
func (p *Paper) Versions(ctx context.Context) []string { return p.catalog.Versions(ctx) }

// Builds lists the builds of a version, newest first
func (p *Paper) Builds(ctx context.Context, version string) []domain.BuildEntry {
	return p.catalog.Builds(ctx, version)
}

// NewInstallTask downloads the requested build, or the newest stable one,
// and verifies its SHA-256.
func (p *Paper) NewInstallTask(ctx context.Context, inst *server.Instance, req server.InstallRequest) (*task.Task, error) {
	if err := requireVersion(p.family, p.catalog.Versions(ctx), req.Version); err != nil {
		return nil, err
	}
	builds, err := p.catalog.FetchBuilds(ctx, req.Version)
	if err != nil {
		return nil, fmt.Errorf("paper builds: %w", err)
	}
	build, err := catalog.SelectBuild(builds, req.Build)
	if err != nil {
		return nil, err
	}
	artifact, ok := build.ServerDownload()
	if !ok {
		return nil, fmt.Errorf("paper %s build %d has no server download: %w", req.Version, build.ID, domain.ErrBuildNotFound)
	}

	return p.start(ctx, inst, req, func(t *task.Task) (map[string]any, error) {
		dl := download.Request{
			URL:    artifact.URL,
			Target: filepath.Join(inst.Dir(), serverJar),
		}
		if sum, err := util.HexToBytes(artifact.Checksums.SHA256); err == nil {
			dl.Hash, dl.Expected = util.HashSHA256, sum
		}
		t.ChangeStatusPercentage(task.DownloadStatus(artifact.URL), 0)
		if err := p.deps.Downloader.DownloadFile(t.Context(), dl, t); err != nil {
			return nil, err
		}
		return map[string]any{
			server.KeyVersion:       req.Version,
			server.KeyBuild:         strconv.Itoa(build.ID),
			server.KeyLoaderVersion: nil,
		}, nil
	}), nil
}

// LaunchCommand runs server.jar
func (p *Paper) LaunchCommand(inst *server.Instance) (server.LaunchSpec, error) {
	return launchJar(inst, serverJar, true)
}
