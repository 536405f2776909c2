package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"craftinstall/internal/domain"
	"craftinstall/internal/manifest"
)

// Installer identifies a loader installer jar
type Installer struct {
	Version string
	URL     string
}

// FabricLike is the catalog of a loader family (Fabric, Quilt). It offers the
// Minecraft releases the loader supports and the loader versions themselves.
type FabricLike struct {
	cached[[]string]
	loaders cached[[]manifest.LoaderMetaVersion]

	metaBase  string
	vanilla   VanillaIndex
	installer func(ctx context.Context) (Installer, error)
}

var _ Catalog = (*FabricLike)(nil)

// NewFabric creates the Fabric catalog from the meta v2 base URL
func NewFabric(fetcher Fetcher, metaBase string, vanilla VanillaIndex, logger *zap.Logger) *FabricLike {
	c := newFabricLike("fabric", fetcher, metaBase, vanilla, logger)
	c.installer = c.fabricInstaller
	return c
}

// NewQuilt creates the Quilt catalog. Quilt publishes its installer only
// through Maven, so installerRepo is the installer artifact directory.
func NewQuilt(fetcher Fetcher, metaBase, installerRepo string, vanilla VanillaIndex, logger *zap.Logger) *FabricLike {
	c := newFabricLike("quilt", fetcher, metaBase, vanilla, logger)
	c.installer = func(ctx context.Context) (Installer, error) {
		return mavenInstaller(ctx, fetcher, installerRepo, "quilt-installer")
	}
	return c
}

func newFabricLike(name string, fetcher Fetcher, metaBase string, vanilla VanillaIndex, logger *zap.Logger) *FabricLike {
	base := strings.TrimSuffix(metaBase, "/")
	c := &FabricLike{metaBase: base, vanilla: vanilla}
	c.cached = newCached(name, fetcher, logger, c.loadGames, c.gamesURL())
	c.loaders = newCached(name+" loaders", fetcher, logger, c.loadLoaders, c.loadersURL())
	return c
}

func (c *FabricLike) gamesURL() string   { return c.metaBase + "/versions/game" }
func (c *FabricLike) loadersURL() string { return c.metaBase + "/versions/loader" }

func (c *FabricLike) loadGames(ctx context.Context) ([]string, error) {
	data, err := c.fetcher.GetBytes(ctx, c.gamesURL())
	if err != nil {
		return nil, err
	}
	games, err := manifest.ParseLoaderMetaVersions(data)
	if err != nil {
		return nil, err
	}

	times := c.vanilla.ReleaseTimes(ctx)
	if len(times) == 0 {
		// Without the vanilla catalog nothing can be offered; keep retrying.
		return nil, fmt.Errorf("%s: %w: vanilla releases", c.name, domain.ErrCatalogUnavailable)
	}

	ids := make([]string, 0, len(games))
	for _, g := range games {
		entry, ok := c.vanilla.Entry(ctx, g.Version)
		if !ok || entry.Kind != "release" || slices.Contains(ids, g.Version) {
			continue
		}
		ids = append(ids, g.Version)
	}
	sortNewestFirst(ids, times, identity)

	c.logger.Debug("Loaded loader game versions", zap.String("catalog", c.name), zap.Int("versions", len(ids)))
	return ids, nil
}

func (c *FabricLike) loadLoaders(ctx context.Context) ([]manifest.LoaderMetaVersion, error) {
	data, err := c.fetcher.GetBytes(ctx, c.loadersURL())
	if err != nil {
		return nil, err
	}
	loaders, err := manifest.ParseLoaderMetaVersions(data)
	if err != nil {
		return nil, err
	}
	SortLoaderVersions(loaders)
	return loaders, nil
}

// SortLoaderVersions orders loader versions newest first by semantic version.
// Versions that do not parse keep their relative order after the rest.
func SortLoaderVersions(loaders []manifest.LoaderMetaVersion) {
	parsed := make(map[string]*semver.Version, len(loaders))
	for _, l := range loaders {
		if v, err := semver.NewVersion(l.Version); err == nil {
			parsed[l.Version] = v
		}
	}
	slices.SortStableFunc(loaders, func(a, b manifest.LoaderMetaVersion) int {
		va, vb := parsed[a.Version], parsed[b.Version]
		switch {
		case va == nil && vb == nil:
			return 0
		case va == nil:
			return 1
		case vb == nil:
			return -1
		}
		return vb.Compare(va)
	})
}

// Versions returns the supported Minecraft releases, newest first
func (c *FabricLike) Versions(ctx context.Context) []string {
	ids, ok := c.get(ctx)
	if !ok {
		return []string{}
	}
	return slices.Clone(ids)
}

// LoaderVersions returns every loader version, newest first
func (c *FabricLike) LoaderVersions(ctx context.Context) []string {
	loaders, ok := c.loaders.get(ctx)
	if !ok {
		return []string{}
	}
	out := make([]string, len(loaders))
	for i, l := range loaders {
		out[i] = l.Version
	}
	return out
}

// LatestLoader returns the newest stable loader, or the newest loader when
// none is marked stable.
func (c *FabricLike) LatestLoader(ctx context.Context) (string, bool) {
	loaders, ok := c.loaders.get(ctx)
	if !ok || len(loaders) == 0 {
		return "", false
	}
	for _, l := range loaders {
		if l.Stable {
			return l.Version, true
		}
	}
	return loaders[0].Version, true
}

// Installer resolves the installer jar to download
func (c *FabricLike) Installer(ctx context.Context) (Installer, error) {
	return c.installer(ctx)
}

// Reload refreshes both the game and loader lists
func (c *FabricLike) Reload(ctx context.Context) bool {
	loadersOK := c.loaders.Reload(ctx)
	return c.cached.Reload(ctx) && loadersOK
}

func (c *FabricLike) fabricInstaller(ctx context.Context) (Installer, error) {
	data, err := c.fetcher.GetBytes(ctx, c.metaBase+"/versions/installer")
	if err != nil {
		return Installer{}, err
	}
	installers, err := manifest.ParseFabricInstallers(data)
	if err != nil {
		return Installer{}, err
	}
	for _, in := range installers {
		if in.Stable && in.URL != "" {
			return Installer{Version: in.Version, URL: in.URL}, nil
		}
	}
	if len(installers) > 0 && installers[0].URL != "" {
		return Installer{Version: installers[0].Version, URL: installers[0].URL}, nil
	}
	return Installer{}, fmt.Errorf("fabric installer: %w", domain.ErrVersionNotFound)
}

// mavenInstaller resolves the release installer from an artifact directory
func mavenInstaller(ctx context.Context, fetcher Fetcher, artifactBase, artifact string) (Installer, error) {
	data, err := fetcher.GetBytes(ctx, MetadataURL(artifactBase))
	if err != nil {
		return Installer{}, err
	}
	meta, err := manifest.ParseMavenMetadata(data)
	if err != nil {
		return Installer{}, err
	}

	version := meta.Release
	if version == "" && len(meta.Versions) > 0 {
		version = meta.Versions[len(meta.Versions)-1]
	}
	if version == "" {
		return Installer{}, fmt.Errorf("%s: %w", artifact, domain.ErrVersionNotFound)
	}
	base := strings.TrimSuffix(artifactBase, "/")
	return Installer{
		Version: version,
		URL:     fmt.Sprintf("%s/%s/%s-%s.jar", base, version, artifact, version),
	}, nil
}
