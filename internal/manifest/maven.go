// Package manifest turns upstream metadata documents into normalized
// version and build records.
package manifest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"craftinstall/internal/domain"
)

// knownBadCoordinate is published upstream without a matching artifact
const knownBadCoordinate = "1.20.1-47.1.7"

// ErrMissingNode is returned when a document lacks a required element
var ErrMissingNode = errors.New("manifest is missing expected nodes")

// MavenMetadata is the versioning block of a maven-metadata.xml document
type MavenMetadata struct {
	Latest   string
	Release  string
	Versions []string
}

type mavenDocument struct {
	XMLName    xml.Name `xml:"metadata"`
	Versioning *struct {
		Latest   string `xml:"latest"`
		Release  string `xml:"release"`
		Versions *struct {
			Items []string `xml:"version"`
		} `xml:"versions"`
	} `xml:"versioning"`
}

// ParseMavenMetadata reads /metadata/versioning/versions/version in document order
func ParseMavenMetadata(data []byte) (MavenMetadata, error) {
	var doc mavenDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return MavenMetadata{}, fmt.Errorf("parse maven metadata: %w", err)
	}
	if doc.Versioning == nil || doc.Versioning.Versions == nil {
		return MavenMetadata{}, fmt.Errorf("maven metadata: %w", ErrMissingNode)
	}

	versions := make([]string, 0, len(doc.Versioning.Versions.Items))
	for _, v := range doc.Versioning.Versions.Items {
		if v = strings.TrimSpace(v); v != "" {
			versions = append(versions, v)
		}
	}
	return MavenMetadata{
		Latest:   strings.TrimSpace(doc.Versioning.Latest),
		Release:  strings.TrimSpace(doc.Versioning.Release),
		Versions: versions,
	}, nil
}

// Coordinate is a Maven version split into its Minecraft and build parts
type Coordinate struct {
	MinecraftVersion string
	BuildID          string
	Raw              string
}

// ParseForgeCoordinate splits "<mc>-<build>" on the first dash. An
// underscore in the Minecraft part (as in "1.7.10_pre4") becomes a dash and
// a trailing ".0" is dropped. The second result is false for entries that
// must be skipped.
func ParseForgeCoordinate(raw string) (Coordinate, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == knownBadCoordinate {
		return Coordinate{}, false
	}

	mc, build, ok := strings.Cut(raw, "-")
	if !ok || mc == "" || build == "" {
		return Coordinate{}, false
	}
	mc = strings.Replace(mc, "_", "-", 1)
	mc = strings.TrimSuffix(mc, ".0")

	return Coordinate{MinecraftVersion: mc, BuildID: build, Raw: raw}, true
}

// ParseNeoForgeCoordinate maps "<major>.<minor>.<patch>[-tag]" to Minecraft
// "1.<major>.<minor>", dropping a trailing ".0". Legacy "1.20.1-47.x"
// coordinates fall back to the Forge layout.
func ParseNeoForgeCoordinate(raw string) (Coordinate, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "1.") {
		return ParseForgeCoordinate(raw)
	}

	base, _, _ := strings.Cut(raw, "-")
	parts := strings.SplitN(base, ".", 3)
	if len(parts) < 3 || !isDigits(parts[0]) || !isDigits(parts[1]) {
		return Coordinate{}, false
	}

	mc := strings.TrimSuffix("1."+parts[0]+"."+parts[1], ".0")
	return Coordinate{MinecraftVersion: mc, BuildID: raw, Raw: raw}, true
}

// GroupBuilds collects builds per Minecraft version. Upstream lists oldest
// first, so both the version order and each build list are reversed to put
// the newest first.
func GroupBuilds(coords []Coordinate) (map[string][]domain.BuildEntry, []string) {
	builds := make(map[string][]domain.BuildEntry)
	order := make([]string, 0)
	for i := len(coords) - 1; i >= 0; i-- {
		c := coords[i]
		if _, seen := builds[c.MinecraftVersion]; !seen {
			order = append(order, c.MinecraftVersion)
		}
		builds[c.MinecraftVersion] = append(builds[c.MinecraftVersion], domain.BuildEntry{
			BuildID: c.BuildID,
			RawTag:  c.Raw,
		})
	}
	return builds, order
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
