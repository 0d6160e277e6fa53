// Package convert turns archived landmark recordings on disk into BVH files.
package convert

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/nocap/internal/bvh"
	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/monitoring"
	"github.com/banshee-data/nocap/internal/preview"
	"github.com/banshee-data/nocap/internal/security"
	"github.com/banshee-data/nocap/internal/skeleton"
)

var logf = monitoring.Component("convert")

// Converter holds the export settings shared by every file it converts.
type Converter struct {
	Hierarchy *skeleton.Hierarchy
	// FrameRate, when non-zero, overrides the rate stored in the archive.
	FrameRate float64
	// FallbackRate is used for archives that carry no rate.
	FallbackRate float64
	// Plot writes PNG channel plots next to each BVH file.
	Plot bool
}

// Result describes one converted archive.
type Result struct {
	Input  string
	Output string
	Frames int
	Plots  []string
}

func (c *Converter) rateFor(a landmark.Archive) float64 {
	switch {
	case c.FrameRate != 0:
		return c.FrameRate
	case a.FrameRate > 0:
		return a.FrameRate
	case c.FallbackRate > 0:
		return c.FallbackRate
	default:
		return 30
	}
}

// ConvertFile reads the archive at in and writes <stem>.bvh into outDir.
func (c *Converter) ConvertFile(in, outDir string) (Result, error) {
	f, err := os.Open(in)
	if err != nil {
		return Result{Input: in}, err
	}
	defer f.Close()

	a, err := landmark.ReadArchive(f)
	if err != nil {
		return Result{Input: in}, fmt.Errorf("%s: %w", in, err)
	}
	stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	res, err := c.Convert(a, stem, outDir)
	res.Input = in
	return res, err
}

// Convert serializes a and writes it as <name>.bvh into outDir, which is
// created when missing. The written file is parsed back before returning.
func (c *Converter) Convert(a landmark.Archive, name, outDir string) (Result, error) {
	h := c.Hierarchy
	if h == nil {
		h = skeleton.Default()
	}

	doc, err := bvh.Build(h, a.Frames, c.rateFor(a))
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}
	out, err := security.OutputPath(outDir, name, ".bvh")
	if err != nil {
		return Result{}, err
	}

	data := doc.Marshal()
	if err := writeFileAtomic(out, data); err != nil {
		return Result{}, err
	}
	if err := selfCheck(doc, data); err != nil {
		return Result{}, fmt.Errorf("%s: %w", out, err)
	}
	res := Result{Output: out, Frames: doc.Frames()}

	if c.Plot {
		plotDir := filepath.Join(outDir, security.SanitizeFilename(name)+"_plots")
		if err := security.ValidatePathWithinDirectory(plotDir, outDir); err != nil {
			return res, err
		}
		plots, err := preview.PlotChannels(doc, plotDir)
		res.Plots = plots
		if err != nil {
			return res, fmt.Errorf("plot %s: %w", name, err)
		}
	}
	return res, nil
}

// writeFileAtomic writes through a temp file in the same directory so the
// outbox never holds a partial BVH.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".nocap-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// selfCheck re-reads serialized output and confirms the header and motion
// agree with the document.
func selfCheck(doc *bvh.Document, data []byte) error {
	parsed, err := bvh.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("self-check: %w", err)
	}
	if got, want := len(parsed.Motion), doc.Frames(); got != want {
		return fmt.Errorf("self-check: parsed %d frames, wrote %d", got, want)
	}
	if got, want := parsed.ChannelCount(), doc.Hierarchy.ChannelCount(); got != want {
		return fmt.Errorf("self-check: parsed %d channels, wrote %d", got, want)
	}
	return nil
}
