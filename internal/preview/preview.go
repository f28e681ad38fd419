// Package preview renders a labelled thumbnail of a volume's middle slice
// so a reviewer can check the defacing result at a glance.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mrsinham/pseudicom/internal/nifti"
)

// DefaultWidth is the thumbnail width in pixels.
const DefaultWidth = 256

// Slice converts plane z of vol to 8-bit gray, windowed on the plane's own
// range, with y pointing up as in the acquisition.
func Slice(vol *nifti.Volume, z int) *image.Gray {
	w, h := vol.Dims[0], vol.Dims[1]
	lo, hi := math.Inf(1), math.Inf(-1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := vol.At(x, y, z)
			if math.IsNaN(v) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	span := hi - lo
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := vol.At(x, y, z)
			var g uint8
			if span > 0 && !math.IsNaN(v) {
				g = uint8(math.Round((v - lo) / span * 255))
			}
			img.SetGray(x, h-1-y, color.Gray{Y: g})
		}
	}
	return img
}

// Render returns the middle slice of vol scaled to width pixels with label
// drawn in the top left corner.
func Render(vol *nifti.Volume, label string, width int) *image.RGBA {
	if width <= 0 {
		width = DefaultWidth
	}
	src := Slice(vol, vol.Dims[2]/2)

	// Keep the physical aspect ratio of the plane.
	aspect := float64(vol.Dims[1]) * vol.Pixdim[1] / (float64(vol.Dims[0]) * vol.Pixdim[0])
	if math.IsNaN(aspect) || aspect <= 0 {
		aspect = float64(vol.Dims[1]) / float64(vol.Dims[0])
	}
	height := max(1, int(math.Round(float64(width)*aspect)))

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	if label != "" {
		drawLabel(dst, label)
	}
	return dst
}

func drawLabel(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	x, y := 4, 4+face.Metrics().Ascent.Ceil()

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx != 0 || dy != 0 {
				drawer.Dot = fixed.P(x+dx, y+dy)
				drawer.DrawString(text)
			}
		}
	}
	drawer.Src = image.NewUniform(color.White)
	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(text)
}

// WritePNG renders vol and stores it as a PNG at path, creating parent
// directories.
func WritePNG(path string, vol *nifti.Volume, label string, width int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create preview dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	if err := png.Encode(f, Render(vol, label, width)); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode preview: %w", err)
	}
	return f.Close()
}

// FromFile renders the volume stored at volumePath.
func FromFile(path, volumePath, label string, width int) error {
	vol, err := nifti.Read(volumePath)
	if err != nil {
		return err
	}
	return WritePNG(path, vol, label, width)
}
