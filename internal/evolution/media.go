// internal/evolution/media.go
package evolution

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Media types Evolution accepts for sendMedia
const (
	MediaTypeImage    = "image"
	MediaTypeVideo    = "video"
	MediaTypeAudio    = "audio"
	MediaTypeDocument = "document"
)

var extensionTypes = map[string]string{
	"jpg":  MediaTypeImage,
	"jpeg": MediaTypeImage,
	"png":  MediaTypeImage,
	"gif":  MediaTypeImage,
	"webp": MediaTypeImage,
	"bmp":  MediaTypeImage,
	"mp4":  MediaTypeVideo,
	"avi":  MediaTypeVideo,
	"mov":  MediaTypeVideo,
	"mkv":  MediaTypeVideo,
	"webm": MediaTypeVideo,
	"3gp":  MediaTypeVideo,
	"mp3":  MediaTypeAudio,
	"ogg":  MediaTypeAudio,
	"wav":  MediaTypeAudio,
	"aac":  MediaTypeAudio,
	"m4a":  MediaTypeAudio,
	"opus": MediaTypeAudio,
}

// ClassifyMediaType maps a media URL to an Evolution media type by file
// extension. Anything unrecognized ships as a document.
func ClassifyMediaType(mediaURL string) string {
	name := mediaURL
	if u, err := url.Parse(mediaURL); err == nil && u.Path != "" {
		name = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return MediaTypeDocument
}

// providerError mirrors the error body Evolution sends back. The message
// field is either a string or an array of strings.
type providerError struct {
	Response struct {
		Message json.RawMessage `json:"message"`
	} `json:"response"`
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

// extractProviderMessage digs a human-readable message out of an error
// body: response.message first, then message, then error, else a generic
// status line.
func extractProviderMessage(body []byte, status int) string {
	var pe providerError
	if err := json.Unmarshal(body, &pe); err == nil {
		if msg := decodeMessageField(pe.Response.Message); msg != "" {
			return msg
		}
		if msg := decodeMessageField(pe.Message); msg != "" {
			return msg
		}
		if pe.Error != "" {
			return pe.Error
		}
	}
	if len(body) > 0 {
		return fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(body)))
	}
	return fmt.Sprintf("status %d", status)
}

func decodeMessageField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return strings.Join(many, "; ")
	}
	return ""
}
