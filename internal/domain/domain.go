package domain

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// HealthStatus represents the status of a health check
type HealthStatus string

const (
	StatusOK    HealthStatus = "OK"
	StatusWarn  HealthStatus = "WARN"
	StatusError HealthStatus = "ERROR"
)

// HealthCheck represents a single health check result
type HealthCheck struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message"`
}

// CheckPath reports whether path exists and is a directory
func CheckPath(name, path string) HealthCheck {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return HealthCheck{Name: name, Status: StatusWarn, Message: "Not found: " + path}
	case !info.IsDir():
		return HealthCheck{Name: name, Status: StatusError, Message: "Not a directory: " + path}
	}
	return HealthCheck{Name: name, Status: StatusOK, Message: path}
}

// Family identifies a supported server distribution
type Family string

const (
	FamilyVanilla     Family = "vanilla"
	FamilyBedrock     Family = "bedrock"
	FamilySpigot      Family = "spigot"
	FamilyCraftBukkit Family = "craftbukkit"
	FamilyPaper       Family = "paper"
	FamilyForge       Family = "forge"
	FamilyNeoForge    Family = "neoforge"
	FamilyFabric      Family = "fabric"
	FamilyQuilt       Family = "quilt"
	FamilyPowerNukkit Family = "powernukkit"
)

// Families lists every supported family in display order
var Families = []Family{
	FamilyVanilla, FamilyPaper, FamilySpigot, FamilyCraftBukkit,
	FamilyForge, FamilyNeoForge, FamilyFabric, FamilyQuilt,
	FamilyBedrock, FamilyPowerNukkit,
}

// ParseFamily resolves a case-insensitive family name
func ParseFamily(name string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Families {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFamily, name)
}

// VersionEntry is one version published by an upstream manifest
type VersionEntry struct {
	ID          string    `json:"id"`
	ReleaseTime time.Time `json:"release_time"`
	ManifestURL string    `json:"manifest_url,omitempty"`
	Kind        string    `json:"kind,omitempty"`
}

// BuildEntry is one build published for a Minecraft version
type BuildEntry struct {
	BuildID string `json:"build_id"`
	RawTag  string `json:"raw_tag"`
}

// ValidateDecision is the caller's answer to a checksum mismatch
type ValidateDecision int

const (
	DecisionAbort ValidateDecision = iota
	DecisionRetry
	DecisionIgnore
)

func (d ValidateDecision) String() string {
	switch d {
	case DecisionRetry:
		return "retry"
	case DecisionIgnore:
		return "ignore"
	default:
		return "abort"
	}
}

// ParseValidateDecision parses retry, ignore or abort
func ParseValidateDecision(s string) (ValidateDecision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retry":
		return DecisionRetry, nil
	case "ignore":
		return DecisionIgnore, nil
	case "abort", "":
		return DecisionAbort, nil
	}
	return DecisionAbort, fmt.Errorf("invalid hash mismatch decision: %q", s)
}

// Sentinel errors
var (
	ErrServerNotRunning   = errors.New("server is not running")
	ErrServerRunning      = errors.New("server is already running")
	ErrServerJarNotFound  = errors.New("server JAR file not found")
	ErrJavaNotFound       = errors.New("java runtime not found")
	ErrInstallInProgress  = errors.New("an install is already in progress")
	ErrNotInstalled       = errors.New("no software installed")
	ErrVersionNotFound    = errors.New("version not found")
	ErrBuildNotFound      = errors.New("build not found")
	ErrUnsupportedFamily  = errors.New("unsupported software family")
	ErrCatalogUnavailable = errors.New("version catalog unavailable")
	ErrHashMismatch       = errors.New("checksum mismatch")
	ErrCancelled          = errors.New("install cancelled")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error [%s]: %s", e.Field, e.Message)
}

// ServiceError represents a service-level error with context
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s.%s: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new service error
func NewServiceError(service, op string, err error) error {
	return &ServiceError{Service: service, Op: op, Err: err}
}

// APIError represents an API call error
type APIError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d]: %s (url: %s)", e.StatusCode, e.Message, e.URL)
	}
	return fmt.Sprintf("API error: %s (url: %s)", e.Message, e.URL)
}

// IsRetryable returns true if the error is retryable
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
