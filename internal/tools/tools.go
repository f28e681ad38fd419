// Package tools drives the external neuroimaging programs: dcm2niix for
// conversion, FSL bet for brain masks and quickshear for defacing.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mrsinham/pseudicom/internal/align"
	"github.com/mrsinham/pseudicom/internal/errors"
)

// Converter turns record series into volumes. The result has one entry per
// input, absent when no volume was produced.
type Converter interface {
	Convert(ctx context.Context, series []align.Series) ([]align.Converted, error)
}

// Masker computes a brain mask for a volume and returns its path.
type Masker interface {
	Mask(ctx context.Context, volume string) (string, error)
}

// Defacer removes the face from a volume given its brain mask and returns
// the defaced volume's path.
type Defacer interface {
	Deface(ctx context.Context, volume, mask string) (string, error)
}

// Toolchain bundles the three steps.
type Toolchain struct {
	Converter Converter
	Masker    Masker
	Defacer   Defacer
}

// Paths names the executables, as names looked up in PATH or as paths.
type Paths struct {
	Dcm2niix   string
	Bet        string
	Quickshear string
}

// NewToolchain resolves every executable and returns the toolchain writing
// intermediates below workDir.
func NewToolchain(p Paths, workDir string, logger logrus.FieldLogger) (*Toolchain, error) {
	resolved := make(map[string]string, 3)
	for _, name := range []string{p.Dcm2niix, p.Bet, p.Quickshear} {
		path, err := exec.LookPath(name)
		if err != nil {
			return nil, errors.Tool(name, err, "executable not found")
		}
		resolved[name] = path
	}

	log := logger.WithField("component", "tools")
	return &Toolchain{
		Converter: &Dcm2niix{Path: resolved[p.Dcm2niix], WorkDir: workDir, logger: log},
		Masker:    &Bet{Path: resolved[p.Bet], logger: log},
		Defacer:   &Quickshear{Path: resolved[p.Quickshear], logger: log},
	}, nil
}

// run executes a tool and turns a failure into a tool error carrying the
// tail of its output.
func run(ctx context.Context, logger logrus.FieldLogger, env []string, path string, args ...string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log := logger.WithField("tool", filepath.Base(path))
	log.WithField("args", strings.Join(args, " ")).Debug("running")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Tool(path, err, "%s", tail(out.String(), 400))
	}
	if out.Len() > 0 {
		log.Debug(strings.TrimSpace(out.String()))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// Stem strips the .nii or .nii.gz extension.
func Stem(path string) string {
	for _, ext := range []string{".nii.gz", ".nii"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}

func requireFile(tool, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Tool(tool, err, "expected output %s was not produced", path)
	}
	if info.Size() == 0 {
		return errors.Tool(tool, nil, "output %s is empty", path)
	}
	return nil
}

// Dcm2niix converts each series on its own, from a staging directory of
// links to the series records so nothing else in the run folder is read.
type Dcm2niix struct {
	Path    string
	WorkDir string
	logger  logrus.FieldLogger
}

// Convert implements Converter. A series the tool fails on, or produces no
// volume for, is reported absent.
func (d *Dcm2niix) Convert(ctx context.Context, series []align.Series) ([]align.Converted, error) {
	out := make([]align.Converted, len(series))
	for i, s := range series {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := filepath.Join(d.WorkDir, fmt.Sprintf("%03d_%s", i+1, s.Name))
		path, err := d.convert(ctx, s, dir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			d.logger.WithError(err).WithField("series", s.Dir).Warn("conversion produced no volume")
			continue
		}
		out[i] = align.Volume(path)
	}
	return out, nil
}

func (d *Dcm2niix) convert(ctx context.Context, s align.Series, dir string) (string, error) {
	staging := filepath.Join(dir, "input")
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("reset %s: %w", dir, err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	for _, f := range s.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return "", err
		}
		if err := os.Symlink(abs, filepath.Join(staging, filepath.Base(f))); err != nil {
			return "", fmt.Errorf("stage %s: %w", f, err)
		}
	}

	err := run(ctx, d.logger, nil, d.Path,
		"-x", "i",
		"-i", "y",
		"-z", "n",
		"-f", s.Name,
		"-o", dir,
		staging,
	)
	if err != nil {
		return "", err
	}

	volumes, err := filepath.Glob(filepath.Join(dir, "*.nii"))
	if err != nil {
		return "", err
	}
	if len(volumes) == 0 {
		return "", errors.Tool(d.Path, nil, "no volume written for %s", s.Dir)
	}
	// Glob returns names sorted.
	if len(volumes) > 1 {
		d.logger.WithField("series", s.Dir).WithField("ignored", volumes[1:]).
			Warn("series converted to several volumes, keeping the first")
	}
	return volumes[0], nil
}

// Bet computes brain masks with FSL's brain extraction tool.
type Bet struct {
	Path   string
	logger logrus.FieldLogger
}

// Mask implements Masker. The mask is written next to the volume as
// <stem>_brain_mask.nii.gz.
func (b *Bet) Mask(ctx context.Context, volume string) (string, error) {
	prefix := Stem(volume) + "_brain"
	if err := run(ctx, b.logger, []string{"FSLOUTPUTTYPE=NIFTI_GZ"}, b.Path, volume, prefix, "-m"); err != nil {
		return "", err
	}
	mask := prefix + "_mask.nii.gz"
	if err := requireFile(b.Path, mask); err != nil {
		return "", err
	}
	return mask, nil
}

// Quickshear defaces volumes.
type Quickshear struct {
	Path   string
	logger logrus.FieldLogger
}

// Deface implements Defacer. The output is written next to the volume as
// <stem>_defaced.nii.gz.
func (q *Quickshear) Deface(ctx context.Context, volume, mask string) (string, error) {
	out := Stem(volume) + "_defaced.nii.gz"
	if err := run(ctx, q.logger, nil, q.Path, volume, mask, out); err != nil {
		return "", err
	}
	if err := requireFile(q.Path, out); err != nil {
		return "", err
	}
	return out, nil
}
