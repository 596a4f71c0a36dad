package encoding

import (
	"github.com/BurntSushi/toml"
)

// LoadAndUnmarshalTOML loads data from the specified path and decodes it into
// the specified structure. It is used to read a mod package's meta.toml.
func LoadAndUnmarshalTOML(path string, value interface{}) error {
	return LoadAndUnmarshal(path, func(data []byte) error {
		return UnmarshalTOML(data, value)
	})
}

// UnmarshalTOML decodes TOML-encoded data into the specified structure.
func UnmarshalTOML(data []byte, value interface{}) error {
	return toml.Unmarshal(data, value)
}
