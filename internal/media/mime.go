package media

import (
	"mime"
	"path"
	"strings"
)

// extensionTypes pins the audio and video types so lookups do not depend on
// the host's mime.types file.
var extensionTypes = map[string]string{
	".3gp":  "video/3gpp",
	".aac":  "audio/aac",
	".aif":  "audio/x-aiff",
	".aiff": "audio/x-aiff",
	".amr":  "audio/amr",
	".avi":  "video/x-msvideo",
	".flac": "audio/flac",
	".flv":  "video/x-flv",
	".m4a":  "audio/mp4",
	".m4v":  "video/x-m4v",
	".mka":  "audio/x-matroska",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".mts":  "video/mp2t",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".ogv":  "video/ogg",
	".opus": "audio/ogg",
	".ts":   "video/mp2t",
	".wav":  "audio/x-wav",
	".webm": "video/webm",
	".wma":  "audio/x-ms-wma",
	".wmv":  "video/x-ms-wmv",
}

// MIMEByExtension guesses a MIME type from a file name alone. It returns ""
// when the extension is unknown.
func MIMEByExtension(name string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, `\`, "/")))
	if ext == "" {
		return ""
	}
	if typ, ok := extensionTypes[ext]; ok {
		return typ
	}
	typ := mime.TypeByExtension(ext)
	if base, _, found := strings.Cut(typ, ";"); found {
		typ = base
	}
	return strings.TrimSpace(typ)
}

// IsMediaMIME reports whether typ is an audio or video type.
func IsMediaMIME(typ string) bool {
	return strings.HasPrefix(typ, "audio/") || strings.HasPrefix(typ, "video/")
}
