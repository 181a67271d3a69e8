package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const (
	TesseractName        = "tesseract"
	defaultContrastBoost = 20.0
)

// TesseractConfig configures the tesseract command-line engine.
type TesseractConfig struct {
	// Path to the tesseract binary (default: "tesseract" on PATH).
	Path string
	// Language passed with -l (default: engine default).
	Language string
	// Preprocess converts to grayscale and boosts contrast before recognition.
	Preprocess bool
	Logger     *slog.Logger
}

// commandRunner runs an external command and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Tesseract implements Recognizer by shelling out to the tesseract CLI.
type Tesseract struct {
	path       string
	language   string
	preprocess bool
	logger     *slog.Logger
	run        commandRunner
}

// NewTesseract creates a tesseract-backed recognizer.
func NewTesseract(cfg TesseractConfig) *Tesseract {
	if cfg.Path == "" {
		cfg.Path = TesseractName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Tesseract{
		path:       cfg.Path,
		language:   cfg.Language,
		preprocess: cfg.Preprocess,
		logger:     cfg.Logger,
		run:        execRunner,
	}
}

// Recognize extracts text from the image or PDF at path.
func (t *Tesseract) Recognize(ctx context.Context, path string) (string, error) {
	start := time.Now()
	if _, err := os.Stat(path); err != nil {
		return "", &RecognitionError{Path: path, Reason: "source not readable", Err: err}
	}

	workDir, err := os.MkdirTemp("", "labparse-ocr-")
	if err != nil {
		return "", &RecognitionError{Path: path, Reason: "cannot create work directory", Err: err}
	}
	defer os.RemoveAll(workDir)

	input := path
	if isPDF(path) {
		input, err = firstPageImage(path, workDir)
		if err != nil {
			return "", &RecognitionError{Path: path, Reason: "cannot extract page image", Err: err}
		}
	}

	if t.preprocess {
		input, err = preprocess(input, workDir)
		if err != nil {
			return "", &RecognitionError{Path: path, Reason: "cannot decode image", Err: err}
		}
	}

	args := []string{input, "stdout"}
	if t.language != "" {
		args = append(args, "-l", t.language)
	}
	out, err := t.run(ctx, t.path, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", &RecognitionError{Path: path, Reason: fmt.Sprintf("%s binary not found (set ocr.tesseract_path)", t.path), Err: err}
		}
		return "", &RecognitionError{Path: path, Reason: "tesseract failed", Err: withStderr(err)}
	}

	text, err := requireText(path, string(out))
	if err != nil {
		return "", err
	}
	t.logger.Debug("recognized text",
		"path", path,
		"chars", len(text),
		"lines", strings.Count(text, "\n")+1,
		"duration", time.Since(start))
	return text, nil
}

// preprocess writes a grayscale, contrast-boosted copy of src into dir.
func preprocess(src, dir string) (string, error) {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}
	img = imaging.AdjustContrast(imaging.Grayscale(img), defaultContrastBoost)

	dst := filepath.Join(dir, "preprocessed.png")
	if err := imaging.Save(img, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func withStderr(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return err
}

// Verify interface
var _ Recognizer = (*Tesseract)(nil)
