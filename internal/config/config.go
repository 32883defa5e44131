package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed calibration.yaml
var calibrationYAML []byte

// DefaultThreshold is the squared L2 acceptance threshold used when the
// extractor model has no entry in calibration.yaml. Calibrated for the
// default ArcFace eye-region model; must be re-tuned whenever the extractor
// changes.
const DefaultThreshold = 0.4

type Config struct {
	Database    DatabaseConfig
	Extractor   ExtractorConfig
	Match       MatchConfig
	Media       MediaConfig
	Calibration CalibrationConfig
}

type MediaConfig struct {
	Dir string // optional directory for archiving uploaded photos; empty disables archiving
}

type DatabaseConfig struct {
	Path         string // SQLite database file (default backend)
	URL          string // PostgreSQL connection URL; takes precedence over Path when set
	MaxOpenConns int    // Maximum open connections for PostgreSQL (default 25)
	MaxIdleConns int    // Maximum idle connections for PostgreSQL (default 5)
}

type ExtractorConfig struct {
	URL   string // embedding server base URL, defaults to http://localhost:8000
	Model string // extractor model name, used to look up a calibrated threshold
	Dim   int    // expected embedding dimensionality (default 512)
}

type MatchConfig struct {
	Threshold float64 // squared L2 acceptance threshold; 0 means "use calibration"
	Engine    string  // "flat" (default, exact) or "hnsw" (approximate, large registries)
}

// CalibrationConfig maps extractor model names to squared L2 thresholds.
// Thresholds are metric-specific: a cosine-calibrated value must never be
// reused here without re-tuning.
type CalibrationConfig struct {
	Models map[string]float64 `yaml:"models"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var calibration CalibrationConfig
	if err := yaml.Unmarshal(calibrationYAML, &calibration); err != nil {
		// Embedded file, so this should never happen in practice.
		panic("failed to unmarshal embedded calibration.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			Path:         os.Getenv("EYEMARK_DB_PATH"),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Extractor: ExtractorConfig{
			URL:   os.Getenv("EXTRACTOR_URL"),
			Model: os.Getenv("EXTRACTOR_MODEL"),
			Dim:   envInt("EXTRACTOR_DIM", 512),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", 0),
			Engine:    os.Getenv("MATCH_ENGINE"),
		},
		Media: MediaConfig{
			Dir: os.Getenv("EYEMARK_MEDIA_DIR"),
		},
		Calibration: calibration,
	}
}

// MatchThreshold resolves the acceptance threshold for attendance decisions.
// An explicit MATCH_THRESHOLD wins, then the calibration table entry for the
// configured extractor model, then DefaultThreshold.
func (c *Config) MatchThreshold() float64 {
	if c.Match.Threshold > 0 {
		return c.Match.Threshold
	}
	if t, ok := c.Calibration.Models[c.Extractor.Model]; ok && t > 0 {
		return t
	}
	return DefaultThreshold
}
