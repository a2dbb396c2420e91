package wizard

import (
	"os"
	"os/exec"
	"path/filepath"
)

// DetectionResult holds what was auto-detected on the system.
type DetectionResult struct {
	AWSCLIAvailable bool
	AWSConfig       string // path to the shared config file if found
	Region          string
	Profile         string
	Templates       []string // previously synthesized templates
}

// Detector abstracts environment, filesystem and path lookups for testing.
type Detector interface {
	LookPath(name string) (string, error)
	Stat(path string) (os.FileInfo, error)
	Glob(pattern string) ([]string, error)
	Getenv(key string) string
}

// OSDetector uses the real OS for detection.
type OSDetector struct{}

func (OSDetector) LookPath(name string) (string, error) { return exec.LookPath(name) }
func (OSDetector) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }
func (OSDetector) Glob(pattern string) ([]string, error) { return filepath.Glob(pattern) }
func (OSDetector) Getenv(key string) string { return os.Getenv(key) }

// Detect scans the environment for AWS tooling and earlier synth output.
func Detect(d Detector, outDir string) DetectionResult {
	if d == nil {
		d = OSDetector{}
	}

	result := DetectionResult{}

	if _, err := d.LookPath("aws"); err == nil {
		result.AWSCLIAvailable = true
	}

	for _, key := range []string{"AWS_REGION", "AWS_DEFAULT_REGION"} {
		if v := d.Getenv(key); v != "" {
			result.Region = v
			break
		}
	}
	result.Profile = d.Getenv("AWS_PROFILE")

	configPath := d.Getenv("AWS_CONFIG_FILE")
	if configPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configPath = filepath.Join(home, ".aws", "config")
		}
	}
	if configPath != "" {
		if info, err := d.Stat(configPath); err == nil && !info.IsDir() {
			result.AWSConfig = configPath
		}
	}

	if outDir != "" {
		if matches, err := d.Glob(filepath.Join(outDir, "*.template.*")); err == nil {
			result.Templates = matches
		}
	}

	return result
}
