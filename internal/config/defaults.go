package config

const (
	defaultDataDir     = "~/.local/share/doorman"
	defaultSnapshotDir = "~/.local/share/doorman/snapshots"
	defaultAPIBind     = "127.0.0.1:7519"

	defaultSidebarWidth       = 360
	defaultHeaderHeight       = 276
	defaultSeparatorMaxStddev = 15.0
	defaultSeparatorMinLuma   = 200.0
	defaultSeparatorMaxLuma   = 245.0
	defaultMinCardHeight      = 100
	defaultMaxCardHeight      = 500
	defaultRematchThreshold   = 0.7
	defaultApproveXFraction   = 0.556
	defaultDeclineXFraction   = 0.671
	defaultControlYOffset     = 46

	defaultOCRBinary         = "tesseract"
	defaultOCRLanguages      = "ita+eng"
	defaultOCRMinConfidence  = 0.5
	defaultOCRTimeoutSeconds = 30

	defaultBridgeBaseURL        = "http://127.0.0.1:9515"
	defaultCaptureTimeoutSecond = 60
	defaultClickTimeoutSeconds  = 15

	defaultNotifyRequestTimeout = 10

	defaultPollInterval       = 3600
	defaultJitter             = 0.3
	defaultMinInterval        = 60
	defaultWorkingHoursStart  = 6
	defaultWorkingHoursEnd    = 22
	defaultErrorRetryInterval = 30

	defaultSnapshotMaxAgeHours = 360
	defaultPendingMaxAgeHours  = 360

	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			SnapshotDir: defaultSnapshotDir,
			APIBind:     defaultAPIBind,
		},
		Page: Page{
			SidebarWidth:       defaultSidebarWidth,
			HeaderHeight:       defaultHeaderHeight,
			SeparatorMaxStddev: defaultSeparatorMaxStddev,
			SeparatorMinLuma:   defaultSeparatorMinLuma,
			SeparatorMaxLuma:   defaultSeparatorMaxLuma,
			MinCardHeight:      defaultMinCardHeight,
			MaxCardHeight:      defaultMaxCardHeight,
			RematchThreshold:   defaultRematchThreshold,
			ApproveXFraction:   defaultApproveXFraction,
			DeclineXFraction:   defaultDeclineXFraction,
			ControlYOffset:     defaultControlYOffset,
		},
		OCR: OCR{
			Binary:         defaultOCRBinary,
			Languages:      defaultOCRLanguages,
			MinConfidence:  defaultOCRMinConfidence,
			TimeoutSeconds: defaultOCRTimeoutSeconds,
		},
		Bridge: Bridge{
			BaseURL:               defaultBridgeBaseURL,
			CaptureTimeoutSeconds: defaultCaptureTimeoutSecond,
			ClickTimeoutSeconds:   defaultClickTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			NewRequest:     true,
			Executed:       true,
			RunSummary:     true,
			Errors:         true,
		},
		Schedule: Schedule{
			PollInterval:       defaultPollInterval,
			Jitter:             defaultJitter,
			MinInterval:        defaultMinInterval,
			WorkingHoursStart:  defaultWorkingHoursStart,
			WorkingHoursEnd:    defaultWorkingHoursEnd,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Retention: Retention{
			SnapshotMaxAgeHours: defaultSnapshotMaxAgeHours,
			PendingMaxAgeHours:  defaultPendingMaxAgeHours,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
