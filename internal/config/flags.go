package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagHeadless = flag.Bool("headless", false, "Run without a window, drawing into a recorder")
	flagFrames   = flag.Int("frames", 0, "Frames to simulate in headless mode")
	flagCulling  = flag.Bool("culling", false, "Enable frustum culling")
	flagSmooth   = flag.Bool("smooth", false, "Enable smooth density")
	flagLogFile  = flag.String("log-file", "", "Write JSON logs to this file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config. Boolean toggles only
// override the file when given explicitly, so -culling=false works too.
func applyFlags(cfg *Config) {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagHeadless {
		cfg.Run.Headless = true
	}
	if *flagFrames > 0 {
		cfg.Run.Frames = *flagFrames
	}
	if set["culling"] {
		cfg.Grass.UseFrustumCulling = *flagCulling
	}
	if set["smooth"] {
		cfg.Grass.UseSmoothDensity = *flagSmooth
	}
}
