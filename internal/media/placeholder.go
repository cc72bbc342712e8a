package media

import (
	"fmt"
	"os"
	"path/filepath"
)

// placeholderMP4 is a minimal MP4 container header. The file is not playable
// content, but downstream tooling recognizes it as an MP4 and consumers see a
// stable artifact when every render path has failed.
var placeholderMP4 = []byte{
	0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm',
	0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'i', 's', 'o', '2',
	'a', 'v', 'c', '1', 'm', 'p', '4', '1',
	0x00, 0x00, 0x00, 0x08, 'f', 'r', 'e', 'e',
}

// WritePlaceholder writes a stub MP4 at path, creating parent directories.
func WritePlaceholder(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create placeholder dir: %w", err)
	}
	if err := os.WriteFile(path, placeholderMP4, 0o644); err != nil {
		return fmt.Errorf("write placeholder: %w", err)
	}
	return nil
}
