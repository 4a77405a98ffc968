package conf

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ContestImages names the sandbox images used for one contest variant.
type ContestImages struct {
	Runner   string `toml:"runner"`
	Compiler string `toml:"compiler"`
}

// ImageMap maps contest names to their sandbox images, with a default
// pair for contests not listed explicitly.
type ImageMap struct {
	Default  ContestImages            `toml:"default"`
	Contests map[string]ContestImages `toml:"contests"`
}

func LoadImageMap(path string) (*ImageMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image map %s: %w", path, err)
	}
	m := &ImageMap{}
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse image map %s: %w", path, err)
	}
	return m, nil
}

// For returns the image pair for a contest, falling back to the
// default entry.
func (m *ImageMap) For(contestName string) ContestImages {
	if images, ok := m.Contests[contestName]; ok {
		return images
	}
	return m.Default
}
