package catalog

import (
	"context"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"craftinstall/internal/domain"
	"craftinstall/internal/manifest"
)

type mojangListing struct {
	keys          []string
	entries       map[string]domain.VersionEntry
	times         map[string]time.Time
	latestRelease string
}

// Mojang is the vanilla Java edition catalog built from version_manifest_v2.json
type Mojang struct {
	cached[*mojangListing]
	url string
}

var (
	_ Catalog      = (*Mojang)(nil)
	_ VanillaIndex = (*Mojang)(nil)
)

// NewMojang creates the vanilla catalog
func NewMojang(fetcher Fetcher, url string, logger *zap.Logger) *Mojang {
	m := &Mojang{url: url}
	m.cached = newCached("vanilla", fetcher, logger, m.load, url)
	return m
}

func (m *Mojang) load(ctx context.Context) (*mojangListing, error) {
	data, err := m.fetcher.GetBytes(ctx, m.url)
	if err != nil {
		return nil, err
	}
	doc, err := manifest.ParseMojangManifest(data)
	if err != nil {
		return nil, err
	}

	l := &mojangListing{
		entries:       make(map[string]domain.VersionEntry, len(doc.Versions)),
		times:         make(map[string]time.Time, len(doc.Versions)),
		latestRelease: doc.Latest.Release,
	}
	for _, v := range doc.Versions {
		if v.ID == "" || manifest.IsAprilFools(v.ReleaseTime) {
			continue
		}
		if _, dup := l.entries[v.ID]; dup {
			continue
		}
		l.entries[v.ID] = domain.VersionEntry{
			ID:          v.ID,
			ReleaseTime: v.ReleaseTime,
			ManifestURL: v.URL,
			Kind:        v.Type,
		}
		l.times[v.ID] = v.ReleaseTime
		l.keys = append(l.keys, v.ID)
	}
	sortNewestFirst(l.keys, l.times, identity)

	m.logger.Debug("Loaded vanilla catalog", zap.Int("versions", len(l.keys)))
	return l, nil
}

// Versions returns every version id, newest first
func (m *Mojang) Versions(ctx context.Context) []string {
	l, ok := m.get(ctx)
	if !ok {
		return []string{}
	}
	return slices.Clone(l.keys)
}

// Releases returns only "release" kind versions, newest first
func (m *Mojang) Releases(ctx context.Context) []string {
	l, ok := m.get(ctx)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(l.keys))
	for _, id := range l.keys {
		if l.entries[id].Kind == "release" {
			out = append(out, id)
		}
	}
	return out
}

// Entry looks up a single version
func (m *Mojang) Entry(ctx context.Context, id string) (domain.VersionEntry, bool) {
	l, ok := m.get(ctx)
	if !ok {
		return domain.VersionEntry{}, false
	}
	e, ok := l.entries[id]
	return e, ok
}

// LatestRelease returns the manifest's advertised latest release
func (m *Mojang) LatestRelease(ctx context.Context) string {
	l, ok := m.get(ctx)
	if !ok {
		return ""
	}
	return l.latestRelease
}

// ReleaseTimes returns a copy of the id to release time index
func (m *Mojang) ReleaseTimes(ctx context.Context) map[string]time.Time {
	l, ok := m.get(ctx)
	if !ok {
		return map[string]time.Time{}
	}
	return maps.Clone(l.times)
}

// Entries returns every version entry, newest first
func (m *Mojang) Entries(ctx context.Context) []domain.VersionEntry {
	l, ok := m.get(ctx)
	if !ok {
		return []domain.VersionEntry{}
	}
	out := make([]domain.VersionEntry, 0, len(l.keys))
	for _, id := range l.keys {
		out = append(out, l.entries[id])
	}
	return out
}
