package ocr

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// firstPageImage extracts the embedded images of page 1 into dir and returns
// the first one. Scanned reports carry the page raster as a single image.
func firstPageImage(pdfPath, dir string) (string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	if err := api.ExtractImagesFile(pdfPath, dir, []string{"1"}, nil); err != nil {
		return "", fmt.Errorf("failed to extract images: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted images: %w", err)
	}
	var images []string
	for _, e := range entries {
		if !e.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	if len(images) == 0 {
		return "", fmt.Errorf("page 1 has no embedded image (text PDFs are not supported)")
	}
	sort.Strings(images)
	return images[0], nil
}
