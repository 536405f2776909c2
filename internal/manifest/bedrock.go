package manifest

import (
	"bufio"
	"strings"
)

// BedrockRelease is one platform=version line of the Bedrock manifest
type BedrockRelease struct {
	Platform string
	Version  string
}

// ParseBedrockManifest reads platform=version lines. Blank lines, comments
// and malformed lines are skipped.
func ParseBedrockManifest(data string) []BedrockRelease {
	var out []BedrockRelease
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		platform, version, ok := strings.Cut(line, "=")
		platform, version = strings.TrimSpace(platform), strings.TrimSpace(version)
		if !ok || platform == "" || version == "" {
			continue
		}
		out = append(out, BedrockRelease{Platform: strings.ToLower(platform), Version: version})
	}
	return out
}
