// Package catalog maintains the per-family lists of installable versions.
//
// Every catalog is populated lazily on first access, exactly once across
// concurrent callers, and is read without locking afterwards. Upstream
// failures never surface to readers: an unavailable catalog reads as empty.
package catalog

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"craftinstall/internal/domain"
	"craftinstall/internal/lazy"
	"craftinstall/internal/util"
)

// Fetcher retrieves upstream documents
type Fetcher interface {
	GetBytes(ctx context.Context, url string, opts ...util.RequestOption) ([]byte, error)
}

// invalidator is implemented by fetchers that cache responses
type invalidator interface {
	Invalidate(urls ...string)
}

// Catalog is the behaviour shared by every family catalog
type Catalog interface {
	Versions(ctx context.Context) []string
	TryInitialize(ctx context.Context) bool
	Reload(ctx context.Context) bool
}

// ReleaseIndex supplies Minecraft release times used to order versions
type ReleaseIndex interface {
	ReleaseTimes(ctx context.Context) map[string]time.Time
}

// VanillaIndex is the view of the vanilla catalog other families depend on
type VanillaIndex interface {
	ReleaseIndex
	Entry(ctx context.Context, id string) (domain.VersionEntry, bool)
}

// cached wraps a lazy value with fail-soft reads and explicit reloads
type cached[T any] struct {
	name    string
	logger  *zap.Logger
	fetcher Fetcher
	urls    []string
	value   *lazy.Value[T]
}

func newCached[T any](name string, fetcher Fetcher, logger *zap.Logger, load lazy.Loader[T], urls ...string) cached[T] {
	return cached[T]{
		name:    name,
		logger:  logger,
		fetcher: fetcher,
		urls:    urls,
		value:   lazy.New(load),
	}
}

// get returns the populated state, or false when the catalog is unavailable
func (c *cached[T]) get(ctx context.Context) (T, bool) {
	v, err := c.value.Get(ctx)
	if err != nil {
		c.logger.Warn("Version catalog unavailable", zap.String("catalog", c.name), zap.Error(err))
		return v, false
	}
	return v, true
}

// TryInitialize populates the catalog if needed and reports success
func (c *cached[T]) TryInitialize(ctx context.Context) bool {
	_, ok := c.get(ctx)
	return ok
}

// Reload discards the populated state and fetches again
func (c *cached[T]) Reload(ctx context.Context) bool {
	if inv, ok := c.fetcher.(invalidator); ok {
		inv.Invalidate(c.urls...)
	}
	c.value.Reset()
	return c.TryInitialize(ctx)
}

// Loads reports how many upstream loads have run
func (c *cached[T]) Loads() int64 {
	return c.value.Loads()
}

// CompareRelease orders two Minecraft versions by release time. Versions
// missing from times compare as least.
func CompareRelease(times map[string]time.Time, a, b string) int {
	ta, okA := times[a]
	tb, okB := times[b]
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	return ta.Compare(tb)
}

// sortNewestFirst orders ids by descending release time. Ties, including
// versions unknown to the index, keep their incoming order.
func sortNewestFirst(ids []string, times map[string]time.Time, key func(string) string) {
	slices.SortStableFunc(ids, func(a, b string) int {
		return CompareRelease(times, key(b), key(a))
	})
}

func identity(id string) string { return id }

// releaseOrder is a version list ordered by release time. A list loaded
// while the release index was unavailable is re-sorted on read until the
// index answers, so the upstream order is not pinned until the next Reload.
type releaseOrder struct {
	ids      []string
	key      func(string) string
	releases ReleaseIndex
	partial  bool
}

func newReleaseOrder(ctx context.Context, ids []string, releases ReleaseIndex, key func(string) string) releaseOrder {
	times := releases.ReleaseTimes(ctx)
	sortNewestFirst(ids, times, key)
	return releaseOrder{ids: ids, key: key, releases: releases, partial: len(times) == 0}
}

// list returns a copy of the ordered ids
func (o releaseOrder) list(ctx context.Context) []string {
	ids := slices.Clone(o.ids)
	if !o.partial {
		return ids
	}
	if times := o.releases.ReleaseTimes(ctx); len(times) > 0 {
		sortNewestFirst(ids, times, o.key)
	}
	return ids
}
