// Package attachments prepares inbound image attachments for the
// vision generation path. Preprocessing never fails a turn: anything
// that cannot be decoded or validated is dropped, and a turn whose
// attachments all drop simply runs as a text turn.
package attachments

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

// Size caps. Oversized payloads are dropped rather than truncated:
// a partial image is worse than no image.
const (
	MaxImageBytes      = 5 * 1024 * 1024
	MaxTotalImageBytes = 12 * 1024 * 1024
)

// Raw is one attachment as delivered by the caller. Data is the
// base64-encoded payload; MIME is the caller's claim and is not
// trusted, the decoded bytes are sniffed instead.
type Raw struct {
	Filename string `json:"filename,omitempty"`
	MIME     string `json:"mime,omitempty"`
	Data     string `json:"data"`
}

// allowedImageTypes are the sniffed content types accepted for the
// vision path.
var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ProcessImages filters raws down to processable image parts, returned
// as base64 strings ready for a multimodal message. Invalid entries are
// logged and skipped; the result may be empty.
func ProcessImages(raws []Raw, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	var parts []string
	total := 0
	for _, raw := range raws {
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw.Data))
		if err != nil {
			logger.Warn("attachment dropped: invalid base64",
				"filename", raw.Filename, "error", err)
			continue
		}
		if len(data) == 0 {
			logger.Warn("attachment dropped: empty payload", "filename", raw.Filename)
			continue
		}
		if len(data) > MaxImageBytes {
			logger.Warn("attachment dropped: too large",
				"filename", raw.Filename, "bytes", len(data))
			continue
		}

		sniffed := http.DetectContentType(data)
		if !allowedImageTypes[sniffed] {
			logger.Warn("attachment dropped: not a supported image",
				"filename", raw.Filename, "detected", sniffed)
			continue
		}

		if total+len(data) > MaxTotalImageBytes {
			logger.Warn("attachment dropped: total size cap reached",
				"filename", raw.Filename)
			continue
		}
		total += len(data)
		parts = append(parts, base64.StdEncoding.EncodeToString(data))
	}

	return parts
}
