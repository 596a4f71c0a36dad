// Package encoding provides small loading/unmarshaling helpers for the
// engine's on-disk formats (mod package metadata and manifests).
package encoding

import (
	"fmt"
	"os"
)

// LoadAndUnmarshal reads the file at path and invokes unmarshal on its
// contents.
func LoadAndUnmarshal(path string, unmarshal func([]byte) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("unable to load file: %w", err)
	}
	if err := unmarshal(data); err != nil {
		return fmt.Errorf("unable to unmarshal data: %w", err)
	}
	return nil
}
