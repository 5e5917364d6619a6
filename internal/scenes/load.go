package scenes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type sceneFile struct {
	Scene []Scene `toml:"scene"`
}

// LoadFile reads scenes from path. Files ending in .toml are decoded as
// [[scene]] tables; anything else is treated as markdown. The denylist applies
// to both. An empty result is not an error.
func LoadFile(path string, opts ExtractOptions) ([]Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene source: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return decodeTOML(data, opts)
	}
	return Collect(Extract(string(data), opts), 0), nil
}

func decodeTOML(data []byte, opts ExtractOptions) ([]Scene, error) {
	var file sceneFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scene file: %w", err)
	}
	denied := opts.denied()
	out := make([]Scene, 0, len(file.Scene))
	for _, entry := range file.Scene {
		title := strings.TrimSpace(entry.Title)
		if title == "" || denied(title) {
			continue
		}
		scene := Scene{
			Title:   title,
			Prompt:  strings.TrimSpace(entry.Prompt),
			Caption: strings.TrimSpace(entry.Caption),
		}
		if scene.Prompt == "" {
			scene.Prompt = title
		}
		if scene.Caption == "" {
			scene.Caption = title
		}
		out = append(out, scene)
	}
	return out, nil
}
