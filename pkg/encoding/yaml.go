package encoding

import (
	"gopkg.in/yaml.v3"
)

// LoadAndUnmarshalYAML loads data from the specified path and decodes it into
// the specified structure. It is used to read a mod package's manifest.yml
// and option sub-manifests.
func LoadAndUnmarshalYAML(path string, value interface{}) error {
	return LoadAndUnmarshal(path, func(data []byte) error {
		return UnmarshalYAML(data, value)
	})
}

// UnmarshalYAML decodes YAML-encoded data into the specified structure.
func UnmarshalYAML(data []byte, value interface{}) error {
	return yaml.Unmarshal(data, value)
}
