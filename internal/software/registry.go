package software

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"craftinstall/internal/catalog"
	"craftinstall/internal/domain"
	"craftinstall/internal/server"
)

// Registry owns one context, and so one catalog, per family for the life of
// the process.
type Registry struct {
	contexts map[domain.Family]Context
	vanilla  *catalog.Mojang
	logger   *zap.Logger
}

// NewRegistry builds every family over shared dependencies. Catalogs stay
// empty until first use.
func NewRegistry(deps Deps) *Registry {
	src := deps.Config.Sources
	log := deps.Logger

	mojang := catalog.NewMojang(deps.Fetcher, src.MojangManifest, log)
	spigot := catalog.NewSpigot(deps.Fetcher, src.SpigotMaven, mojang, log)

	contexts := []Context{
		NewVanilla(deps, mojang),
		NewPaper(deps, catalog.NewPaper(deps.Fetcher, src.PaperAPI, mojang, log)),
		NewSpigot(deps, spigot, src.BuildTools),
		NewCraftBukkit(deps, spigot, src.BuildTools),
		NewForge(deps, catalog.NewForge(deps.Fetcher, src.ForgeMaven, mojang, log), src.ForgeMaven),
		NewNeoForge(deps, catalog.NewNeoForge(deps.Fetcher, src.NeoForgeMaven, mojang, log), src.NeoForgeMaven),
		NewFabric(deps, catalog.NewFabric(deps.Fetcher, src.FabricMeta, mojang, log)),
		NewQuilt(deps, catalog.NewQuilt(deps.Fetcher, src.QuiltMeta, src.QuiltInstallerRepo, mojang, log)),
		NewBedrock(deps, catalog.NewBedrock(deps.Fetcher, src.BedrockManifest, src.BedrockDownload, "", log)),
		NewPowerNukkit(deps,
			catalog.NewPowerNukkit(deps.Fetcher, src.PowerNukkitMaven, mojang, log), src.PowerNukkitMaven),
	}

	r := &Registry{
		contexts: make(map[domain.Family]Context, len(contexts)),
		vanilla:  mojang,
		logger:   log,
	}
	for _, c := range contexts {
		r.contexts[c.Family()] = c
	}
	return r
}

// Get returns the context of a family
func (r *Registry) Get(family domain.Family) (Context, error) {
	c, ok := r.contexts[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFamily, family)
	}
	return c, nil
}

// Lookup resolves a family by name
func (r *Registry) Lookup(name string) (Context, error) {
	family, err := domain.ParseFamily(name)
	if err != nil {
		return nil, err
	}
	return r.Get(family)
}

// Contexts returns every context in display order
func (r *Registry) Contexts() []Context {
	out := make([]Context, 0, len(r.contexts))
	for _, f := range domain.Families {
		if c, ok := r.contexts[f]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Vanilla returns the shared Mojang catalog
func (r *Registry) Vanilla() *catalog.Mojang {
	return r.vanilla
}

// CreateServerInstance opens or creates a server of family in dir
func (r *Registry) CreateServerInstance(dir string, family domain.Family) (*server.Instance, error) {
	c, err := r.Get(family)
	if err != nil {
		return nil, err
	}
	return c.CreateServerInstance(dir)
}

// OpenServerInstance opens an existing server, using the family stored in
// its record.
func (r *Registry) OpenServerInstance(dir string) (*server.Instance, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	rec, err := server.OpenRecord(abs)
	if err != nil {
		return nil, err
	}
	software := rec.GetString(server.KeySoftware)
	if software == "" {
		return nil, fmt.Errorf("%s: %w", abs, domain.ErrNotInstalled)
	}
	c, err := r.Lookup(software)
	if err != nil {
		return nil, err
	}
	return c.CreateServerInstance(abs)
}

// Warm populates every catalog concurrently and reports which are available
func (r *Registry) Warm(ctx context.Context) map[domain.Family]bool {
	contexts := r.Contexts()
	results := make([]bool, len(contexts))

	var g errgroup.Group
	g.SetLimit(4)
	for i, c := range contexts {
		g.Go(func() error {
			results[i] = c.Catalog().TryInitialize(ctx)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[domain.Family]bool, len(contexts))
	for i, c := range contexts {
		out[c.Family()] = results[i]
	}
	return out
}
