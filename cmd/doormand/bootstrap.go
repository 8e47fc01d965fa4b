package main

import (
	"log/slog"

	"doorman/internal/browser"
	"doorman/internal/config"
	"doorman/internal/decision"
	"doorman/internal/notify"
	"doorman/internal/ocr"
	"doorman/internal/reconcile"
	"doorman/internal/segment"
)

// buildEngine assembles the perception and actuation pipeline around the
// decision store.
func buildEngine(cfg *config.Config, store *decision.Store, notifier notify.Service, logger *slog.Logger) (*reconcile.Engine, error) {
	surface, err := browser.NewClient(
		cfg.Bridge.BaseURL,
		cfg.Bridge.CaptureTimeoutSeconds,
		cfg.Bridge.ClickTimeoutSeconds,
	)
	if err != nil {
		return nil, err
	}

	engine, err := ocr.NewTesseract(cfg.OCR.Binary, cfg.OCR.Languages, cfg.OCR.TimeoutSeconds)
	if err != nil {
		return nil, err
	}

	segmenter := segment.New(cfg.Page, logger)
	extractor := ocr.NewExtractor(engine, cfg.OCR.MinConfidence, logger)

	return reconcile.New(cfg, surface, segmenter, extractor, store, notifier, logger), nil
}
