package manifest

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// PaperProject is the fill v3 project document
type PaperProject struct {
	Project struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"project"`
	Versions map[string][]string `json:"versions"`
}

// AllVersions flattens the version groups
func (p *PaperProject) AllVersions() []string {
	var out []string
	for _, group := range p.Versions {
		out = append(out, group...)
	}
	return out
}

// PaperBuild is one build of a Paper version
type PaperBuild struct {
	ID        int                      `json:"id"`
	Time      time.Time                `json:"time"`
	Channel   string                   `json:"channel"`
	Downloads map[string]PaperDownload `json:"downloads"`
}

// PaperDownload is a build artifact
type PaperDownload struct {
	Name      string `json:"name"`
	Checksums struct {
		SHA256 string `json:"sha256"`
	} `json:"checksums"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Stable reports whether the build is on the STABLE channel
func (b PaperBuild) Stable() bool {
	return strings.EqualFold(b.Channel, "stable")
}

// ServerDownload returns the server jar artifact
func (b PaperBuild) ServerDownload() (PaperDownload, bool) {
	for _, key := range []string{"server:default", "application"} {
		if d, ok := b.Downloads[key]; ok && d.URL != "" {
			return d, true
		}
	}
	return PaperDownload{}, false
}

// ParsePaperProject decodes the project document
func ParsePaperProject(data []byte) (*PaperProject, error) {
	var p PaperProject
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse paper project: %w", err)
	}
	if p.Versions == nil {
		return nil, fmt.Errorf("paper project: %w", ErrMissingNode)
	}
	return &p, nil
}

// ParsePaperBuilds decodes a build list, newest first
func ParsePaperBuilds(data []byte) ([]PaperBuild, error) {
	var builds []PaperBuild
	if err := json.Unmarshal(data, &builds); err != nil {
		return nil, fmt.Errorf("parse paper builds: %w", err)
	}
	slices.SortFunc(builds, func(a, b PaperBuild) int { return b.ID - a.ID })
	return builds, nil
}
