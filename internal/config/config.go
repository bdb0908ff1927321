package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, the upstream detection
// API, image preprocessing and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"1m" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MaxBodyBytes caps request bodies, uploads included
		MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" env-default:"33554432" yaml:"maxBodyBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Detector configures the hosted detection API
	Detector struct {
		// BaseURL is the root of the inference API
		BaseURL string `env:"DETECTOR_BASE_URL" env-default:"https://detect.roboflow.com" yaml:"baseURL"`
		// Model is the hosted project identifier
		Model string `env:"DETECTOR_MODEL" env-default:"glassfood-ghwjx" yaml:"model"`
		// Version is the trained model version
		Version string `env:"DETECTOR_VERSION" env-default:"1" yaml:"version"`
		// APIKey authenticates against the inference API
		APIKey string `env:"DETECTOR_API_KEY" yaml:"apiKey"`
		// Timeout bounds a single upstream call
		Timeout time.Duration `env:"DETECTOR_TIMEOUT" env-default:"30s" yaml:"timeout"`
	} `yaml:"detector"`

	// Imaging configures the downscale applied to uploads
	Imaging struct {
		// MaxDimension bounds the width and height of uploaded images
		MaxDimension int `env:"IMAGING_MAX_DIMENSION" env-default:"1500" yaml:"maxDimension"`
		// JPEGQuality is the quality used when re-encoding uploads
		JPEGQuality int `env:"IMAGING_JPEG_QUALITY" env-default:"100" yaml:"jpegQuality"`
		// MaxPixels rejects uploads whose decoded width*height exceeds it
		MaxPixels int64 `env:"IMAGING_MAX_PIXELS" env-default:"50000000" yaml:"maxPixels"`
	} `yaml:"imaging"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
// A missing file is not an error: defaults and environment variables are used instead.
func Load(configPath string) (*Config, error) {
	var cfg Config

	_, statErr := os.Stat(configPath)
	switch {
	case configPath != "" && statErr == nil:
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	case configPath == "" || errors.Is(statErr, os.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("could not read env: %w", err)
		}
	default:
		return nil, fmt.Errorf("could not stat config: %w", statErr)
	}

	return &cfg, nil
}

// Validate reports settings the detection commands cannot run without.
func (c *Config) Validate() error {
	if c.Detector.APIKey == "" {
		return errors.New("detector api key is not set (DETECTOR_API_KEY)")
	}
	if c.Detector.Model == "" || c.Detector.Version == "" {
		return errors.New("detector model and version are required")
	}

	return nil
}
