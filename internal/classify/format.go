package classify

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var formatLabels = map[string]string{
	"application/gzip":                      "gzip compressed data",
	"application/octet-stream":              "data",
	"application/pdf":                       "PDF document",
	"application/vnd.debian.binary-package": "Debian binary package",
	"application/vnd.ms-asf":                "Microsoft ASF",
	"application/vnd.rar":                   "RAR archive data",
	"application/vnd.sqlite3":               "SQLite 3.x database",
	"application/x-7z-compressed":           "7-zip archive data",
	"application/x-archive":                 "current ar archive",
	"application/x-bzip2":                   "bzip2 compressed data",
	"application/x-executable":              "ELF executable",
	"application/x-iso9660-image":           "ISO 9660 CD-ROM filesystem data",
	"application/x-ole-storage":             "Composite Document File",
	"application/x-rpm":                     "RPM package",
	"application/x-sharedlib":               "ELF shared object",
	"application/x-tar":                     "POSIX tar archive",
	"application/x-xz":                      "XZ compressed data",
	"application/zip":                       "Zip archive data",
	"application/zstd":                      "Zstandard compressed data",
	"audio/aac":                             "ADTS AAC audio",
	"audio/aiff":                            "IFF AIFF audio",
	"audio/amr":                             "AMR audio",
	"audio/flac":                            "FLAC audio bitstream data",
	"audio/mp4":                             "MPEG-4 audio",
	"audio/mpeg":                            "MPEG ADTS audio",
	"audio/ogg":                             "Ogg data, audio",
	"audio/wav":                             "RIFF (little-endian) data, WAVE audio",
	"audio/x-m4a":                           "MPEG-4 audio",
	"image/jpeg":                            "JPEG image data",
	"image/png":                             "PNG image data",
	"text/plain":                            "text",
	"video/mp2t":                            "MPEG transport stream data",
	"video/mp4":                             "ISO Media, MP4 video",
	"video/mpeg":                            "MPEG sequence",
	"video/ogg":                             "Ogg data, video",
	"video/quicktime":                       "ISO Media, Apple QuickTime movie",
	"video/webm":                            "WebM",
	"video/x-matroska":                      "Matroska data",
	"video/x-msvideo":                       "RIFF (little-endian) data, AVI",
}

// FormatLabel returns a human-readable description of the detected type,
// walking up the detection hierarchy before falling back to the extension.
func FormatLabel(detected *mimetype.MIME) string {
	for m := detected; m != nil; m = m.Parent() {
		if label, ok := formatLabels[baseType(m.String())]; ok {
			return label
		}
	}
	if detected == nil {
		return "data"
	}
	if ext := strings.TrimPrefix(detected.Extension(), "."); ext != "" {
		return strings.ToUpper(ext) + " data"
	}
	return "data"
}
