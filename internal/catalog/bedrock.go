package catalog

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"go.uber.org/zap"

	"craftinstall/internal/manifest"
)

// Bedrock is the Bedrock dedicated server catalog for one platform
type Bedrock struct {
	cached[[]string]
	url          string
	downloadBase string
	platform     string
}

var _ Catalog = (*Bedrock)(nil)

// HostPlatform returns the Bedrock manifest platform for this OS
func HostPlatform() string {
	if runtime.GOOS == "windows" {
		return "windows"
	}
	return "linux"
}

// NewBedrock creates the Bedrock catalog. An empty platform selects the host.
func NewBedrock(fetcher Fetcher, manifestURL, downloadBase, platform string, logger *zap.Logger) *Bedrock {
	if platform == "" {
		platform = HostPlatform()
	}
	b := &Bedrock{
		url:          manifestURL,
		downloadBase: strings.TrimSuffix(downloadBase, "/"),
		platform:     strings.ToLower(platform),
	}
	b.cached = newCached("bedrock", fetcher, logger, b.load, manifestURL)
	return b
}

func (b *Bedrock) load(ctx context.Context) ([]string, error) {
	data, err := b.fetcher.GetBytes(ctx, b.url)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, r := range manifest.ParseBedrockManifest(string(data)) {
		if r.Platform == b.platform && !slices.Contains(ids, r.Version) {
			ids = append(ids, r.Version)
		}
	}
	slices.SortStableFunc(ids, func(x, y string) int { return manifest.CompareDotted(y, x) })

	b.logger.Debug("Loaded bedrock catalog", zap.String("platform", b.platform), zap.Int("versions", len(ids)))
	return ids, nil
}

// Versions returns Bedrock versions for the platform, newest first
func (b *Bedrock) Versions(ctx context.Context) []string {
	ids, ok := b.get(ctx)
	if !ok {
		return []string{}
	}
	return slices.Clone(ids)
}

// DownloadURL returns the server archive location for a version
func (b *Bedrock) DownloadURL(version string) string {
	dir := "bin-linux"
	if b.platform == "windows" {
		dir = "bin-win"
	}
	return fmt.Sprintf("%s/%s/bedrock-server-%s.zip", b.downloadBase, dir, version)
}
