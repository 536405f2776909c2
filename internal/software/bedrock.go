package software

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"craftinstall/internal/catalog"
	"craftinstall/internal/domain"
	"craftinstall/internal/download"
	"craftinstall/internal/server"
	"craftinstall/internal/task"
)

// preservedFiles survive a Bedrock reinstall
var preservedFiles = []string{"server.properties", "allowlist.json", "permissions.json"}

// Bedrock installs the Bedrock dedicated server archive
type Bedrock struct {
	base
	catalog *catalog.Bedrock
}

var _ Context = (*Bedrock)(nil)

// NewBedrock creates the Bedrock family
func NewBedrock(deps Deps, versions *catalog.Bedrock) *Bedrock {
	b := &Bedrock{base: newBase(domain.FamilyBedrock, deps), catalog: versions}
	b.self = b
	return b
}

// Catalog returns the Bedrock catalog
func (b *Bedrock) Catalog() catalog.Catalog { return b.catalog }

// Versions lists Bedrock versions for this platform, newest first
func (b *Bedrock) Versions(ctx context.Context) []string { return b.catalog.Versions(ctx) }

// NewInstallTask downloads the archive (0-80%) and extracts it (80-100%),
// keeping the operator's configuration files.
func (b *Bedrock) NewInstallTask(ctx context.Context, inst *server.Instance, req server.InstallRequest) (*task.Task, error) {
	if err := requireVersion(b.family, b.catalog.Versions(ctx), req.Version); err != nil {
		return nil, err
	}
	url := b.catalog.DownloadURL(req.Version)

	return b.start(ctx, inst, req, func(t *task.Task) (map[string]any, error) {
		ctx := t.Context()
		archive := filepath.Join(b.cacheDir("bedrock"), fmt.Sprintf("bedrock-server-%s-%s.zip", req.Version, t.ID))
		defer func() {
			if err := os.Remove(archive); err != nil && !errors.Is(err, fs.ErrNotExist) {
				b.logger.Debug("Failed to remove archive", zap.String("path", archive), zap.Error(err))
			}
		}()

		t.ChangeStatusPercentage(task.DownloadStatus(url), 0)
		err := b.deps.Downloader.DownloadFile(ctx, download.Request{
			URL:        url,
			Target:     archive,
			Multiplier: 0.8,
		}, t)
		if err != nil {
			return nil, err
		}

		t.ChangeStatusPercentage(task.ProcessStatus("Extracting bedrock-server-"+req.Version+".zip"), 80)
		if err := extractArchive(ctx, archive, inst.Dir(), t); err != nil {
			return nil, err
		}
		return map[string]any{
			server.KeyVersion:       req.Version,
			server.KeyBuild:         nil,
			server.KeyLoaderVersion: nil,
		}, nil
	}), nil
}

// LaunchCommand runs the native server binary
func (b *Bedrock) LaunchCommand(inst *server.Instance) (server.LaunchSpec, error) {
	return launchBedrock(inst)
}

// extractArchive unpacks archive into dir, skipping preserved files that
// already exist. Progress advances from 80 to 100 by entry count.
func extractArchive(ctx context.Context, archive, dir string, t *task.Task) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = zr.Close() }()

	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	total := max(len(zr.File), 1)
	for i, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := extractEntry(f, root); err != nil {
			return err
		}
		t.ChangePercentage(80 + 20*float64(i+1)/float64(total))
	}
	return nil
}

func extractEntry(f *zip.File, root string) error {
	name := filepath.FromSlash(f.Name)
	target := filepath.Join(root, name)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes the server directory", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o750)
	}
	if slices.Contains(preservedFiles, name) {
		if _, err := os.Stat(target); err == nil {
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	mode := f.Mode().Perm()
	if filepath.Base(name) == "bedrock_server" {
		mode |= 0o755
	}
	if mode == 0 {
		mode = 0o644
	}
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode) //nolint:gosec // confined to the server directory above
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil { //nolint:gosec // archive comes from the configured download source
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
