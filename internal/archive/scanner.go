package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/zip"
	"github.com/mholt/archives"

	"wspsr/internal/logging"
	"wspsr/internal/media"
	"wspsr/internal/services"
)

const defaultBlockSize = 4096

const (
	zipFlagEncrypted = 0x1
	// zipMethodAES is the WinZip AES marker method.
	zipMethodAES = 99
)

var errPassphraseRequired = services.Wrap(services.ErrEncrypted, "archive", "read", "passphrase required", nil)

// Scanner enumerates archive members.
type Scanner struct {
	logger    *slog.Logger
	blockSize int
}

// New returns a Scanner.
func New(logger *slog.Logger) *Scanner {
	return &Scanner{
		logger:    logging.NewComponentLogger(logger, "archive"),
		blockSize: defaultBlockSize,
	}
}

// Scan returns the audio and video members of the archive at path. A file
// that is not a supported archive yields no members and no error.
func (s *Scanner) Scan(ctx context.Context, path string) ([]media.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "archive", "open", path, err)
		}
		return nil, fmt.Errorf("archive open %s: %w", path, err)
	}
	defer file.Close()

	if info, err := file.Stat(); err != nil {
		return nil, fmt.Errorf("archive stat %s: %w", path, err)
	} else if info.Size() == 0 {
		return nil, nil
	}

	// Content decides the format; the name may lie.
	format, _, err := archives.Identify(ctx, "", file)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Brotli has no magic number, so a matched compression layer whose
		// content then fails to decode is most likely not an archive at all.
		attrs := []any{logging.String("path", path)}
		if !errors.Is(err, archives.NoMatch) {
			attrs = append(attrs, logging.Error(err))
		}
		s.logger.Debug("not a supported archive", attrs...)
		return nil, nil
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		s.logger.Debug("compressed file is not an archive",
			logging.String("path", path),
			logging.String("format", format.MediaType()),
		)
		return nil, nil
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("archive rewind %s: %w", path, err)
	}

	// Tar streams cannot resynchronize past a bad entry; zip and 7z index
	// their entries and can.
	seekable := false
	switch format.(type) {
	case archives.Zip, archives.SevenZip:
		seekable = true
	}

	var members []media.Member
	err = extractor.Extract(ctx, file, func(ctx context.Context, entry archives.FileInfo) error {
		member, keep, err := s.inspectEntry(path, entry, seekable)
		if err != nil {
			return err
		}
		if keep {
			members = append(members, member)
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, services.ErrArchiveIntegrity) {
			return nil, err
		}
		if isEncryptionError(err) {
			// The entry listing itself is encrypted.
			return nil, services.Wrap(services.ErrEncrypted, "archive", "list", path, err)
		}
		return nil, integrityError(path, "list", err)
	}
	return members, nil
}

func (s *Scanner) inspectEntry(path string, entry archives.FileInfo, seekable bool) (media.Member, bool, error) {
	if !entry.Mode().IsRegular() || !candidate(entry.NameInArchive) {
		return media.Member{}, false, nil
	}
	member := media.Member{
		ArchivePath:  entry.NameInArchive,
		ArchiveSize:  entry.Size(),
		ArchiveMTime: entry.ModTime(),
	}
	if header, ok := entry.Header.(*tar.Header); ok {
		member.ArchiveCTime = header.ChangeTime
	}

	err := s.readEntry(entry)
	switch {
	case err == nil:
	case isEncryptionError(err):
		member.Encrypted = true
	case seekable:
		logging.WarnWithContext(s.logger, "archive entry unreadable; skipping", "archive_entry_unreadable",
			logging.String("path", path),
			logging.String("member", entry.NameInArchive),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "test the archive with bsdtar -tvf"),
			logging.String(logging.FieldImpact, "member will not be offered for transcription"),
		)
		return media.Member{}, false, nil
	default:
		return media.Member{}, false, integrityError(path, "read "+entry.NameInArchive, err)
	}
	return member, true, nil
}

// readEntry reads the first block of an entry, or all of it when shorter.
func (s *Scanner) readEntry(entry archives.FileInfo) error {
	if header, ok := entry.Header.(zip.FileHeader); ok {
		if header.Flags&zipFlagEncrypted != 0 || header.Method == zipMethodAES {
			return errPassphraseRequired
		}
	}
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	size := int64(s.blockSize)
	if entry.Size() >= 0 && entry.Size() < size {
		size = entry.Size()
	}
	buf := make([]byte, size)
	_, err = io.ReadFull(rc, buf)
	return err
}

func candidate(name string) bool {
	return media.IsMediaMIME(media.MIMEByExtension(name))
}

func isEncryptionError(err error) bool {
	if errors.Is(err, services.ErrEncrypted) {
		return true
	}
	var sevenZipErr *sevenzip.ReadError
	if errors.As(err, &sevenZipErr) && sevenZipErr.Encrypted {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypted") || strings.Contains(msg, "passphrase") || strings.Contains(msg, "password")
}

func integrityError(path, operation string, err error) error {
	return services.Wrap(services.ErrArchiveIntegrity, "archive", operation, path, err)
}
