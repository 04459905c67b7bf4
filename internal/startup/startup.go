package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"model-library/internal/logging"

	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	LibraryDir  string
	DataDir     string
	Host        string
	Port        string
	MetricsPort string
	AssetPrefix string
	CachePrefix string

	MetricsEnabled bool

	// Derived paths
	DatabasePath    string
	PreviewCacheDir string
	UploadCacheDir  string
}

// Address returns the host:port the HTTP server binds to.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// LoadConfig loads and validates configuration from the environment.
// A .env file in the working directory is honored when present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded environment from .env file")
	}

	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	libraryDir := getEnv("LIBRARIES_PATH", "/library")
	dataDir := getEnv("DATA_DIR", "/data")
	host := getEnv("HOST", "localhost")
	port := getEnv("PORT", "51100")
	metricsPort := getEnv("METRICS_PORT", "9091")
	assetPrefix := getEnv("ASSET_PREFIX", "/3d")
	cachePrefix := getEnv("CACHE_PREFIX", "/cache")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	logging.Info("  LIBRARIES_PATH:  %s", libraryDir)
	logging.Info("  DATA_DIR:        %s", dataDir)
	logging.Info("  HOST:            %s", host)
	logging.Info("  PORT:            %s", port)
	logging.Info("  METRICS_PORT:    %s", metricsPort)
	logging.Info("  METRICS_ENABLED: %v", metricsEnabled)
	logging.Info("  ASSET_PREFIX:    %s", assetPrefix)
	logging.Info("  CACHE_PREFIX:    %s", cachePrefix)
	logging.Info("  LOG_LEVEL:       %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	libraryDir, err := filepath.Abs(libraryDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library directory path: %w", err)
	}
	logging.Info("  Library directory (absolute): %s", libraryDir)

	dataDir, err = filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	logging.Info("  Data directory (absolute): %s", dataDir)

	// A missing library directory is a warning only: it may be mounted later
	// and refresh simply finds nothing until then.
	if err := ensureDirectory(libraryDir, "library"); err != nil {
		logging.Warn("  Library directory issue: %v", err)
	}

	config := &Config{
		LibraryDir:      libraryDir,
		DataDir:         dataDir,
		Host:            host,
		Port:            port,
		MetricsPort:     metricsPort,
		AssetPrefix:     assetPrefix,
		CachePrefix:     cachePrefix,
		MetricsEnabled:  metricsEnabled,
		DatabasePath:    filepath.Join(dataDir, "db.sqlite3"),
		PreviewCacheDir: filepath.Join(dataDir, "preview_cache"),
		UploadCacheDir:  filepath.Join(dataDir, "upload_cache"),
	}

	// The data directory holds the catalog database and is required.
	if err := ensureDirectory(dataDir, "data"); err != nil {
		return nil, fmt.Errorf("data directory error: %w", err)
	}

	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable (required for catalog): %w", err)
	}
	logging.Info("  [OK] Data directory is writable")

	if err := ensureDirectory(config.PreviewCacheDir, "preview cache"); err != nil {
		return nil, fmt.Errorf("preview cache directory error: %w", err)
	}
	if err := ensureDirectory(config.UploadCacheDir, "upload cache"); err != nil {
		return nil, fmt.Errorf("upload cache directory error: %w", err)
	}

	return config, nil
}

// LogDatabaseInit logs catalog database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CATALOG DATABASE")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogServerStarted logs successful server start
func LogServerStarted(config *Config, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time: %v", startupDuration)
	logging.Info("")
	logging.Info("  Application:  http://%s", config.Address())
	if config.MetricsEnabled {
		logging.Info("  Metrics:      http://%s:%s/metrics", config.Host, config.MetricsPort)
	} else {
		logging.Info("  Metrics:      DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("MODEL LIBRARY %s (%s)", Version, Commit)
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))
	logging.Info("  Started:         %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "t", "T", "true", "TRUE", "True":
		return true
	case "0", "f", "F", "false", "FALSE", "False":
		return false
	default:
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
}
