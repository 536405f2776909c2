// Package download transfers install artifacts to disk with progress
// reporting, checksum verification and atomic placement.
package download

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"craftinstall/internal/domain"
	"craftinstall/internal/util"
)

const maxTempSuffix = 1000

// Opener starts a GET whose body is the artifact
type Opener interface {
	Open(ctx context.Context, url string, opts ...util.RequestOption) (*http.Response, error)
}

// Progress receives download progress and decides checksum mismatches.
// *task.Task satisfies it.
type Progress interface {
	ChangePercentage(p float64) bool
	OnValidateFailed(file string, actual, expected []byte) domain.ValidateDecision
}

// Request describes one artifact download. Progress is reported as
// InitialPercentage + raw*Multiplier where raw runs 0..100; a zero
// Multiplier means 1.
type Request struct {
	URL               string
	Target            string
	Hash              util.HashAlgorithm
	Expected          []byte
	InitialPercentage float64
	Multiplier        float64
	Options           []util.RequestOption
}

func (r Request) verifies() bool {
	return r.Hash != util.HashNone && len(r.Expected) > 0
}

// Downloader performs artifact downloads. It is safe for concurrent use.
type Downloader struct {
	client Opener
	logger *zap.Logger
}

// New creates a Downloader
func New(client Opener, logger *zap.Logger) *Downloader {
	return &Downloader{client: client, logger: logger}
}

// DownloadFile fetches req.URL into req.Target. Data is written to a sibling
// temp file which replaces Target only after the transfer and checksum
// succeed. On every failure the temp file is removed and Target is left as it
// was. A checksum mismatch is resolved by progress.OnValidateFailed: Retry
// downloads again, Ignore keeps the file and Abort fails with ErrHashMismatch.
func (d *Downloader) DownloadFile(ctx context.Context, req Request, progress Progress) error {
	if progress == nil {
		progress = nopProgress{}
	}
	if req.Multiplier == 0 {
		req.Multiplier = 1
	}
	if err := os.MkdirAll(filepath.Dir(req.Target), 0o750); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	for attempt := 1; ; attempt++ {
		retry, err := d.attempt(ctx, req, progress, attempt)
		if err != nil {
			return err
		}
		if !retry {
			return nil
		}
	}
}

func (d *Downloader) attempt(ctx context.Context, req Request, progress Progress, attempt int) (retry bool, err error) {
	tmp, err := createTemp(req.Target)
	if err != nil {
		return false, err
	}
	tmpName := tmp.Name()
	placed := false
	defer func() {
		if !placed {
			if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				d.logger.Warn("Failed to remove temp file", zap.String("path", tmpName), zap.Error(rmErr))
			}
		}
	}()

	d.logger.Debug("Downloading",
		zap.String("url", req.URL),
		zap.String("target", req.Target),
		zap.Int("attempt", attempt))

	if err := d.fetch(ctx, req, tmp, progress); err != nil {
		return false, err
	}

	if req.verifies() {
		actual, err := util.ComputeFileHash(tmpName, req.Hash)
		if err != nil {
			return false, fmt.Errorf("hash %s: %w", tmpName, err)
		}
		if !util.HashEqual(actual, req.Expected) {
			decision := progress.OnValidateFailed(req.Target, actual, req.Expected)
			d.logger.Warn("Checksum mismatch",
				zap.String("url", req.URL),
				zap.String("algorithm", req.Hash.String()),
				zap.String("expected", hex.EncodeToString(req.Expected)),
				zap.String("actual", hex.EncodeToString(actual)),
				zap.Stringer("decision", decision))

			switch decision {
			case domain.DecisionRetry:
				return true, nil
			case domain.DecisionIgnore:
			default:
				return false, fmt.Errorf("%s: %w", req.URL, domain.ErrHashMismatch)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := os.Rename(tmpName, req.Target); err != nil {
		return false, fmt.Errorf("place %s: %w", req.Target, err)
	}
	placed = true
	return false, nil
}

// fetch streams the response into f and closes it
func (d *Downloader) fetch(ctx context.Context, req Request, f *os.File, progress Progress) (err error) {
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	resp, err := d.client.Open(ctx, req.URL, req.Options...)
	if err != nil {
		return err
	}
	defer util.CloseResponseBodySilent(resp.Body)

	report := func(raw float64) {
		progress.ChangePercentage(req.InitialPercentage + raw*req.Multiplier)
	}
	report(0)

	w := &progressWriter{total: resp.ContentLength, report: report}
	if _, err := io.Copy(f, io.TeeReader(contextReader{ctx: ctx, r: resp.Body}, w)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("download %s: %w", req.URL, err)
	}
	report(100)
	return nil
}

// createTemp opens target.tmp, or target.tmp1, target.tmp2 and so on when a
// name is already taken.
func createTemp(target string) (*os.File, error) {
	for i := 0; i < maxTempSuffix; i++ {
		name := target + ".tmp"
		if i > 0 {
			name += strconv.Itoa(i)
		}
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o640) //nolint:gosec // target is chosen by the installer
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create temp file: %w", err)
		}
	}
	return nil, fmt.Errorf("create temp file for %s: too many stale temp files", target)
}

// progressWriter converts byte counts into whole-percent reports
type progressWriter struct {
	total   int64
	written int64
	last    int
	report  func(float64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.total <= 0 {
		return len(p), nil
	}
	pct := int(w.written * 100 / w.total)
	if pct > w.last {
		w.last = pct
		w.report(float64(min(pct, 100)))
	}
	return len(p), nil
}

// contextReader stops reading as soon as ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

type nopProgress struct{}

func (nopProgress) ChangePercentage(float64) bool { return false }

func (nopProgress) OnValidateFailed(string, []byte, []byte) domain.ValidateDecision {
	return domain.DecisionAbort
}
