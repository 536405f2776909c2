package catalog

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"craftinstall/internal/domain"
	"craftinstall/internal/manifest"
)

const mavenMetadataFile = "maven-metadata.xml"

// MetadataURL returns the maven-metadata.xml location of an artifact directory
func MetadataURL(artifactBase string) string {
	return strings.TrimSuffix(artifactBase, "/") + "/" + mavenMetadataFile
}

type buildListing struct {
	order  releaseOrder
	builds map[string][]domain.BuildEntry
}

// MavenBuilds is a catalog of Minecraft versions, each carrying the builds
// published for it in a Maven repository (Forge, NeoForge).
type MavenBuilds struct {
	cached[*buildListing]
	url      string
	parse    func(string) (manifest.Coordinate, bool)
	releases ReleaseIndex
}

var _ Catalog = (*MavenBuilds)(nil)

// NewForge creates the Forge build catalog from the artifact directory URL
func NewForge(fetcher Fetcher, artifactBase string, releases ReleaseIndex, logger *zap.Logger) *MavenBuilds {
	return newMavenBuilds("forge", fetcher, artifactBase, manifest.ParseForgeCoordinate, releases, logger)
}

// NewNeoForge creates the NeoForge build catalog from the artifact directory URL
func NewNeoForge(fetcher Fetcher, artifactBase string, releases ReleaseIndex, logger *zap.Logger) *MavenBuilds {
	return newMavenBuilds("neoforge", fetcher, artifactBase, manifest.ParseNeoForgeCoordinate, releases, logger)
}

func newMavenBuilds(
	name string,
	fetcher Fetcher,
	artifactBase string,
	parse func(string) (manifest.Coordinate, bool),
	releases ReleaseIndex,
	logger *zap.Logger,
) *MavenBuilds {
	c := &MavenBuilds{url: MetadataURL(artifactBase), parse: parse, releases: releases}
	c.cached = newCached(name, fetcher, logger, c.load, c.url)
	return c
}

func (c *MavenBuilds) load(ctx context.Context) (*buildListing, error) {
	data, err := c.fetcher.GetBytes(ctx, c.url)
	if err != nil {
		return nil, err
	}
	meta, err := manifest.ParseMavenMetadata(data)
	if err != nil {
		return nil, err
	}

	coords := make([]manifest.Coordinate, 0, len(meta.Versions))
	for _, raw := range meta.Versions {
		if coord, ok := c.parse(raw); ok {
			coords = append(coords, coord)
		}
	}
	builds, keys := manifest.GroupBuilds(coords)
	order := newReleaseOrder(ctx, keys, c.releases, identity)

	c.logger.Debug("Loaded build catalog",
		zap.String("catalog", c.name),
		zap.Int("versions", len(keys)),
		zap.Int("builds", len(coords)))
	return &buildListing{order: order, builds: builds}, nil
}

// Versions returns Minecraft versions with at least one build, newest first
func (c *MavenBuilds) Versions(ctx context.Context) []string {
	l, ok := c.get(ctx)
	if !ok {
		return []string{}
	}
	return l.order.list(ctx)
}

// Builds returns the builds for a Minecraft version, newest first
func (c *MavenBuilds) Builds(ctx context.Context, mcVersion string) []domain.BuildEntry {
	l, ok := c.get(ctx)
	if !ok {
		return []domain.BuildEntry{}
	}
	return slices.Clone(l.builds[mcVersion])
}

// MavenVersions is a catalog read straight from a Maven version list where
// each published version maps to one installable version (Spigot, PowerNukkit).
type MavenVersions struct {
	cached[releaseOrder]
	url      string
	key      func(raw string) (string, bool)
	releases ReleaseIndex
}

var _ Catalog = (*MavenVersions)(nil)

// NewSpigot creates the Spigot/CraftBukkit catalog from the spigot-api
// artifact directory. Versions are the Minecraft component of each snapshot.
func NewSpigot(fetcher Fetcher, artifactBase string, releases ReleaseIndex, logger *zap.Logger) *MavenVersions {
	return newMavenVersions("spigot", fetcher, artifactBase, spigotKey, releases, logger)
}

// NewPowerNukkit creates the PowerNukkit catalog
func NewPowerNukkit(fetcher Fetcher, artifactBase string, releases ReleaseIndex, logger *zap.Logger) *MavenVersions {
	return newMavenVersions("powernukkit", fetcher, artifactBase, powerNukkitKey, releases, logger)
}

func newMavenVersions(
	name string,
	fetcher Fetcher,
	artifactBase string,
	key func(string) (string, bool),
	releases ReleaseIndex,
	logger *zap.Logger,
) *MavenVersions {
	c := &MavenVersions{url: MetadataURL(artifactBase), key: key, releases: releases}
	c.cached = newCached(name, fetcher, logger, c.load, c.url)
	return c
}

// spigotKey maps "1.20.1-R0.1-SNAPSHOT" to "1.20.1"
func spigotKey(raw string) (string, bool) {
	mc, tag, ok := strings.Cut(raw, "-")
	if !ok || !strings.HasPrefix(tag, "R") {
		return "", false
	}
	return mc, mc != ""
}

func powerNukkitKey(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func (c *MavenVersions) load(ctx context.Context) (releaseOrder, error) {
	data, err := c.fetcher.GetBytes(ctx, c.url)
	if err != nil {
		return releaseOrder{}, err
	}
	meta, err := manifest.ParseMavenMetadata(data)
	if err != nil {
		return releaseOrder{}, err
	}

	seen := make(map[string]struct{}, len(meta.Versions))
	keys := make([]string, 0, len(meta.Versions))
	for _, raw := range slices.Backward(meta.Versions) {
		id, ok := c.key(raw)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, id)
	}

	// Keys are ordered by the release time of their Minecraft component
	order := newReleaseOrder(ctx, keys, c.releases, mcComponent)

	c.logger.Debug("Loaded maven catalog", zap.String("catalog", c.name), zap.Int("versions", len(keys)))
	return order, nil
}

func mcComponent(id string) string {
	mc, _, _ := strings.Cut(id, "-")
	return mc
}

// Versions returns every version id, newest first
func (c *MavenVersions) Versions(ctx context.Context) []string {
	order, ok := c.get(ctx)
	if !ok {
		return []string{}
	}
	return order.list(ctx)
}

// Contains reports whether id is a known version
func (c *MavenVersions) Contains(ctx context.Context, id string) bool {
	order, ok := c.get(ctx)
	return ok && slices.Contains(order.ids, id)
}
