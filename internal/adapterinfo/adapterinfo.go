// Package adapterinfo exposes the service identity declared in plugin.yaml.
package adapterinfo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

const manifestName = "plugin.yaml"

// Metadata captures static identifiers for the service.
type Metadata struct {
	Name        string
	Slug        string
	Description string
	GeneratorID string
	Version     string
	BinaryName  string
}

// builtin is the identity used when no readable manifest is found.
var builtin = Metadata{
	Name:        "ElevenLabs TTS Proxy",
	Slug:        "elevenlabs-proxy",
	Description: "HTTP proxy for ElevenLabs text-to-speech (Turbo v2.5 and Multilingual) that keeps the API key server-side",
	GeneratorID: "elevenlabs-proxy",
	Version:     "1.0.0",
	BinaryName:  "tts-proxy",
}

// Info describes the running service.
var Info, loadErr = loadMetadata(searchDirs())

// LoadError reports why the manifest could not be used, or nil when Info
// came from plugin.yaml.
func LoadError() error {
	return loadErr
}

// SynthesisMetadata produces the metadata attached to emitted audio chunks.
func SynthesisMetadata(modelID, voiceID string) map[string]string {
	return map[string]string{
		"generator": Info.GeneratorID,
		"model":     modelID,
		"voice_id":  voiceID,
	}
}

// Version returns the service semantic version.
func Version() string {
	return Info.Version
}

// loadMetadata reads the first manifest found in dirs. Any failure yields the
// built-in identity together with the reason.
func loadMetadata(dirs []string) (Metadata, error) {
	data, err := findManifest(dirs)
	if err != nil {
		return builtin, err
	}
	meta, err := parseManifest(data)
	if err != nil {
		return builtin, err
	}
	return meta, nil
}

// searchDirs lists where plugin.yaml may live: next to the binary, the
// working directory, then the module root of this source file.
func searchDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if _, file, _, ok := runtime.Caller(0); ok {
		dirs = append(dirs, filepath.Join(filepath.Dir(file), "..", ".."))
	}
	return dirs
}

func findManifest(dirs []string) ([]byte, error) {
	seen := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if seen[dir] {
			continue
		}
		seen[dir] = true

		if data, err := os.ReadFile(filepath.Join(dir, manifestName)); err == nil {
			return data, nil
		}
	}
	return nil, errors.New("adapterinfo: plugin.yaml not found next to binary, in working directory or source tree")
}

type manifest struct {
	Metadata struct {
		Name        string `yaml:"name"`
		Slug        string `yaml:"slug"`
		Description string `yaml:"description"`
		Version     string `yaml:"version"`
		Generator   string `yaml:"generator"`
	} `yaml:"metadata"`
	Spec struct {
		Entrypoint struct {
			Command string `yaml:"command"`
		} `yaml:"entrypoint"`
	} `yaml:"spec"`
}

func parseManifest(data []byte) (Metadata, error) {
	var doc manifest
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Metadata{}, fmt.Errorf("adapterinfo: decode manifest: %w", err)
	}

	meta := Metadata{
		Name:        strings.TrimSpace(doc.Metadata.Name),
		Slug:        strings.TrimSpace(doc.Metadata.Slug),
		Description: strings.TrimSpace(doc.Metadata.Description),
		Version:     strings.TrimSpace(doc.Metadata.Version),
		GeneratorID: strings.TrimSpace(doc.Metadata.Generator),
		BinaryName:  strings.TrimPrefix(strings.TrimSpace(doc.Spec.Entrypoint.Command), "./"),
	}

	switch {
	case meta.Version == "":
		return Metadata{}, errors.New("adapterinfo: metadata.version missing in manifest")
	case meta.Slug == "":
		return Metadata{}, errors.New("adapterinfo: metadata.slug missing in manifest")
	}
	if meta.Name == "" {
		meta.Name = meta.Slug
	}
	if meta.Description == "" {
		meta.Description = meta.Name
	}
	if meta.GeneratorID == "" {
		meta.GeneratorID = meta.Slug
	}
	if meta.BinaryName == "" {
		meta.BinaryName = meta.Slug
	}
	return meta, nil
}
