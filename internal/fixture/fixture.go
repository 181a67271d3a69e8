// Package fixture synthesizes a sample lab report image for demos and tests.
package fixture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	Width       = 800
	Height      = 600
	marginLeft  = 50
	marginTop   = 50
	linePitch   = 30
	DefaultFile = "medical_report_test.png"
)

// SampleLines is the text drawn onto the sample report.
var SampleLines = []string{
	"SafeHealth Medical Lab",
	"Patient Name: John Doe",
	"Date: 2024-10-25",
	"--------------------------------------------------",
	"Test                Result      Unit      Ref Range",
	"Hemoglobin          14.5        g/dL      13.0-17.0",
	"White Blood Cells   6.5         K/uL      4.0-11.0",
	"Platelets           250         K/uL      150-450",
	"Glucose (Fasting)   115         mg/dL     70-99",
	"--------------------------------------------------",
	"Physician: Dr. Smith",
}

// Render draws lines onto a white canvas, one per line pitch.
func Render(lines []string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: color.Black},
		Face: basicfont.Face7x13,
	}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	for i, line := range lines {
		// Dot is the baseline; shift by the ascent so marginTop is the top edge.
		drawer.Dot = fixed.P(marginLeft, marginTop+i*linePitch+ascent)
		drawer.DrawString(line)
	}
	return img
}

// Generate writes the sample report as a PNG to path.
func Generate(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create fixture directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create fixture: %w", err)
	}
	if err := png.Encode(f, Render(SampleLines)); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode fixture: %w", err)
	}
	return f.Close()
}

// Ensure generates the sample report only when path does not exist.
// It reports whether a new file was written.
func Ensure(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, fs.ErrNotExist):
		return true, Generate(path)
	default:
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
}
