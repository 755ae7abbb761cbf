package acestep

import (
	"net/url"
	"strings"
)

// ResolvePath extracts the filesystem path from an audio ref of the form
// "/v1/audio?path=%2Fdata%2F...mp3". Anything else is returned unchanged.
func ResolvePath(ref string) string {
	if !strings.Contains(ref, "?") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if p := u.Query().Get("path"); p != "" {
		return p
	}
	return ref
}
