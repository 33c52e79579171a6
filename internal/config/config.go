package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	FaceService FaceServiceConfig
	Database    DatabaseConfig
	Model       ModelConfig
	Recognition RecognitionConfig
	Enrollment  EnrollmentConfig
	Detector    DetectorConfig
}

type FaceServiceConfig struct {
	URL string // defaults to http://localhost:8000
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type ModelConfig struct {
	Path string // Path to the recognition model blob (default facegate.model)
}

type RecognitionConfig struct {
	// IdentificationThreshold is the minimum confidence (100 - distance)
	// to accept a scan match.
	IdentificationThreshold float64
	// DuplicateThreshold is the minimum confidence at which an enrollment
	// crop is considered the same physical person as an enrolled identity.
	DuplicateThreshold float64
}

type EnrollmentConfig struct {
	// MinSamples is the number of usable face crops required to enroll.
	MinSamples int
}

type DetectorConfig struct {
	ScaleFactor  float64
	MinNeighbors int
}

// defaultsFile mirrors the structure of the embedded defaults.yaml.
type defaultsFile struct {
	Thresholds struct {
		Identification float64 `yaml:"identification"`
		Duplicate      float64 `yaml:"duplicate"`
	} `yaml:"thresholds"`
	Enrollment struct {
		MinSamples int `yaml:"min_samples"`
	} `yaml:"enrollment"`
	Detector struct {
		ScaleFactor  float64 `yaml:"scale_factor"`
		MinNeighbors int     `yaml:"min_neighbors"`
	} `yaml:"detector"`
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

// envFloat reads an environment variable and parses it as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var defaults defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	modelPath := os.Getenv("FACEGATE_MODEL_PATH")
	if modelPath == "" {
		modelPath = "facegate.model"
	}

	return &Config{
		FaceService: FaceServiceConfig{
			URL: os.Getenv("FACE_SERVICE_URL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Model: ModelConfig{
			Path: modelPath,
		},
		Recognition: RecognitionConfig{
			IdentificationThreshold: envFloat("FACEGATE_IDENTIFICATION_THRESHOLD", defaults.Thresholds.Identification),
			DuplicateThreshold:      envFloat("FACEGATE_DUPLICATE_THRESHOLD", defaults.Thresholds.Duplicate),
		},
		Enrollment: EnrollmentConfig{
			MinSamples: envInt("FACEGATE_MIN_SAMPLES", defaults.Enrollment.MinSamples),
		},
		Detector: DetectorConfig{
			ScaleFactor:  envFloat("FACEGATE_DETECTOR_SCALE", defaults.Detector.ScaleFactor),
			MinNeighbors: envInt("FACEGATE_DETECTOR_NEIGHBORS", defaults.Detector.MinNeighbors),
		},
	}
}

// Validate rejects invalid thresholds and sample counts at startup,
// before any request is served.
func (c *Config) Validate() error {
	if c.Enrollment.MinSamples <= 0 {
		return fmt.Errorf("minimum sample count must be positive, got %d", c.Enrollment.MinSamples)
	}
	if c.Recognition.IdentificationThreshold < 0 || c.Recognition.IdentificationThreshold > 100 {
		return fmt.Errorf("identification threshold must be within [0, 100], got %v", c.Recognition.IdentificationThreshold)
	}
	if c.Recognition.DuplicateThreshold < 0 || c.Recognition.DuplicateThreshold > 100 {
		return fmt.Errorf("duplicate threshold must be within [0, 100], got %v", c.Recognition.DuplicateThreshold)
	}
	if c.Recognition.DuplicateThreshold < c.Recognition.IdentificationThreshold {
		return fmt.Errorf("duplicate threshold (%v) must not be weaker than identification threshold (%v)",
			c.Recognition.DuplicateThreshold, c.Recognition.IdentificationThreshold)
	}
	if c.Detector.ScaleFactor <= 1.0 {
		return fmt.Errorf("detector scale factor must be greater than 1.0, got %v", c.Detector.ScaleFactor)
	}
	if c.Detector.MinNeighbors <= 0 {
		return fmt.Errorf("detector min neighbors must be positive, got %d", c.Detector.MinNeighbors)
	}
	return nil
}
