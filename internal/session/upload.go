package session

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/schollz/gowrangler/internal/decode"
)

var sniffedTypes = map[string]string{
	decode.FormatWAV:  "audio/wav",
	decode.FormatAIFF: "audio/aiff",
	decode.FormatOgg:  "audio/ogg",
	decode.FormatFLAC: "audio/flac",
	decode.FormatMP3:  "audio/mpeg",
}

// ContentType guesses the media type of a file from its first bytes,
// falling back to the extension.
func ContentType(name string, head []byte) string {
	if ct, ok := sniffedTypes[decode.Sniff(head)]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(head)
}

// UploadFile uploads the file at path as the rework source.
func (s *Session) UploadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind audio: %w", err)
	}
	return s.UploadAudio(ctx, filepath.Base(path), ContentType(path, head[:n]), f)
}
