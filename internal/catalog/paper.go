package catalog

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"craftinstall/internal/domain"
	"craftinstall/internal/manifest"
	"craftinstall/internal/util"
)

// paperUserAgent identifies us to fill, which rejects generic clients
const paperUserAgent = "craftinstall/1.0 (Minecraft server installer)"

// Paper is the Paper catalog backed by the fill v3 API
type Paper struct {
	cached[releaseOrder]
	base     string
	releases ReleaseIndex
}

var _ Catalog = (*Paper)(nil)

// NewPaper creates the Paper catalog from the project URL
func NewPaper(fetcher Fetcher, projectURL string, releases ReleaseIndex, logger *zap.Logger) *Paper {
	p := &Paper{base: strings.TrimSuffix(projectURL, "/"), releases: releases}
	p.cached = newCached("paper", fetcher, logger, p.load, p.base)
	return p
}

func (p *Paper) load(ctx context.Context) (releaseOrder, error) {
	data, err := p.fetcher.GetBytes(ctx, p.base, util.WithHeader("User-Agent", paperUserAgent))
	if err != nil {
		return releaseOrder{}, err
	}
	project, err := manifest.ParsePaperProject(data)
	if err != nil {
		return releaseOrder{}, err
	}

	ids := project.AllVersions()
	slices.SortFunc(ids, func(a, b string) int { return manifest.CompareDotted(b, a) })
	ids = slices.Compact(ids)
	order := newReleaseOrder(ctx, ids, p.releases, identity)

	p.logger.Debug("Loaded paper catalog", zap.Int("versions", len(ids)))
	return order, nil
}

// Versions returns every Paper version, newest first
func (p *Paper) Versions(ctx context.Context) []string {
	order, ok := p.get(ctx)
	if !ok {
		return []string{}
	}
	return order.list(ctx)
}

// FetchBuilds returns the builds of a version, newest first. Builds are
// fetched on every call and errors are returned to the caller.
func (p *Paper) FetchBuilds(ctx context.Context, version string) ([]manifest.PaperBuild, error) {
	url := fmt.Sprintf("%s/versions/%s/builds", p.base, version)
	data, err := p.fetcher.GetBytes(ctx, url, util.WithHeader("User-Agent", paperUserAgent))
	if err != nil {
		return nil, err
	}
	return manifest.ParsePaperBuilds(data)
}

// Builds lists build numbers for a version, newest first. Errors read as empty.
func (p *Paper) Builds(ctx context.Context, version string) []domain.BuildEntry {
	builds, err := p.FetchBuilds(ctx, version)
	if err != nil {
		p.logger.Warn("Paper builds unavailable", zap.String("version", version), zap.Error(err))
		return []domain.BuildEntry{}
	}
	out := make([]domain.BuildEntry, 0, len(builds))
	for _, b := range builds {
		out = append(out, domain.BuildEntry{BuildID: strconv.Itoa(b.ID), RawTag: b.Channel})
	}
	return out
}

// SelectBuild picks the requested build, or the newest stable build when
// buildID is empty. The newest build is used if none is stable.
func SelectBuild(builds []manifest.PaperBuild, buildID string) (manifest.PaperBuild, error) {
	if buildID != "" {
		for _, b := range builds {
			if strconv.Itoa(b.ID) == buildID {
				return b, nil
			}
		}
		return manifest.PaperBuild{}, fmt.Errorf("paper build %s: %w", buildID, domain.ErrBuildNotFound)
	}
	if len(builds) == 0 {
		return manifest.PaperBuild{}, domain.ErrBuildNotFound
	}
	for _, b := range builds {
		if b.Stable() {
			return b, nil
		}
	}
	return builds[0], nil
}
