package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdin io.Reader) ([]byte, error)
}

// Option configures the Tesseract client.
type Option func(*Tesseract)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(executor Executor) Option {
	return func(t *Tesseract) {
		if executor != nil {
			t.exec = executor
		}
	}
}

// Tesseract recognizes text by piping PNG data through the tesseract CLI.
type Tesseract struct {
	binary    string
	languages string
	timeout   time.Duration
	exec      Executor
}

// NewTesseract constructs a Tesseract engine.
func NewTesseract(binary, languages string, timeoutSeconds int, opts ...Option) (*Tesseract, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("tesseract binary required")
	}
	if languages == "" {
		languages = "eng"
	}
	engine := &Tesseract{
		binary:    binary,
		languages: languages,
		timeout:   time.Duration(timeoutSeconds) * time.Second,
		exec:      commandExecutor{},
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Recognize runs one OCR pass and returns the recognized lines in reading
// order with per-line confidence.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]TextLine, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	// psm 6 assumes a uniform block of text, which card crops are.
	args := []string{"stdin", "stdout", "-l", t.languages, "--psm", "6", "tsv"}
	output, err := t.exec.Run(ctx, t.binary, args, &encoded)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", t.binary, err)
	}
	return parseTSV(output), nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdin io.Reader) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
