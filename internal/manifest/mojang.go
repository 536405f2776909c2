package manifest

import (
	"encoding/json"
	"fmt"
	"time"
)

// MojangManifest is version_manifest_v2.json
type MojangManifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []MojangVersion `json:"versions"`
}

// MojangVersion is one entry of the launcher manifest
type MojangVersion struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	URL         string    `json:"url"`
	Time        time.Time `json:"time"`
	ReleaseTime time.Time `json:"releaseTime"`
	SHA1        string    `json:"sha1"`
}

// MojangArtifact is a downloadable file referenced by a version document
type MojangArtifact struct {
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// MojangVersionDetail is the per-version document linked from the manifest
type MojangVersionDetail struct {
	ID        string `json:"id"`
	Downloads struct {
		Server *MojangArtifact `json:"server"`
	} `json:"downloads"`
	JavaVersion struct {
		Component    string `json:"component"`
		MajorVersion int    `json:"majorVersion"`
	} `json:"javaVersion"`
}

// ParseMojangManifest decodes the launcher manifest
func ParseMojangManifest(data []byte) (*MojangManifest, error) {
	var m MojangManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mojang manifest: %w", err)
	}
	if m.Versions == nil {
		return nil, fmt.Errorf("mojang manifest: %w", ErrMissingNode)
	}
	return &m, nil
}

// ParseMojangVersion decodes a per-version document
func ParseMojangVersion(data []byte) (*MojangVersionDetail, error) {
	var d MojangVersionDetail
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse mojang version: %w", err)
	}
	return &d, nil
}

// IsAprilFools reports whether t falls on April 1 (UTC). Mojang publishes
// joke versions on that date which are not real server releases.
func IsAprilFools(t time.Time) bool {
	u := t.UTC()
	return u.Month() == time.April && u.Day() == 1
}
