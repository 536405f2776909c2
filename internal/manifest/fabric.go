package manifest

import (
	"encoding/json"
	"fmt"
)

// LoaderMetaVersion is an entry of the Fabric/Quilt meta game and loader lists
type LoaderMetaVersion struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

// FabricInstaller is an entry of the Fabric meta installer list
type FabricInstaller struct {
	URL     string `json:"url"`
	Maven   string `json:"maven"`
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

// ParseLoaderMetaVersions decodes /versions/game or /versions/loader
func ParseLoaderMetaVersions(data []byte) ([]LoaderMetaVersion, error) {
	var out []LoaderMetaVersion
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse loader meta: %w", err)
	}
	return out, nil
}

// ParseFabricInstallers decodes /versions/installer
func ParseFabricInstallers(data []byte) ([]FabricInstaller, error) {
	var out []FabricInstaller
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse fabric installers: %w", err)
	}
	return out, nil
}
