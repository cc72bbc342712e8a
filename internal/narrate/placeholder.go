package narrate

import (
	"fmt"
	"os"
	"path/filepath"
)

// placeholderMP3 holds an MPEG-1 Layer III frame header followed by zeroed
// payload. Decoders treat it as a sliver of silence, which keeps the compose
// stage's audio muxing path working when synthesis failed.
var placeholderMP3 = func() []byte {
	frame := make([]byte, 418)
	frame[0] = 0xFF
	frame[1] = 0xFB
	frame[2] = 0x90
	frame[3] = 0x00
	return frame
}()

// WritePlaceholder writes a silent stand-in narration file at path.
func WritePlaceholder(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create narration dir: %w", err)
	}
	if err := os.WriteFile(path, placeholderMP3, 0o644); err != nil {
		return fmt.Errorf("write narration placeholder: %w", err)
	}
	return nil
}
