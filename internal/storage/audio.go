package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lecturenotes/internal/observability"
)

// TempPrefix is the file name prefix of every transient upload
const TempPrefix = "upload_"

var (
	ErrMissingFile  = errors.New("audio file is required")
	ErrEmptyFile    = errors.New("audio file is empty")
	ErrFileTooLarge = errors.New("audio file exceeds the upload size limit")
)

// Upload is an audio file persisted for the duration of one request
type Upload struct {
	ID       string
	Path     string
	Filename string // client supplied name
	Ext      string
	MIME     string
	Size     int64
}

// TempStore writes uploads to uniquely named files in a single directory
type TempStore struct {
	dir      string
	maxBytes int64
	log      zerolog.Logger
}

// NewTempStore creates the directory if needed
func NewTempStore(dir string, maxBytes int64) (*TempStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &TempStore{
		dir:      dir,
		maxBytes: maxBytes,
		log:      observability.Component("storage"),
	}, nil
}

// Dir returns the upload directory
func (s *TempStore) Dir() string {
	return s.dir
}

// Save validates the multipart file and writes it to upload_<uuid><ext>
func (s *TempStore) Save(file *multipart.FileHeader) (*Upload, error) {
	if file == nil {
		return nil, ErrMissingFile
	}
	if file.Size == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes > %d bytes)", ErrFileTooLarge, file.Size, s.maxBytes)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind uploaded file: %w", err)
	}

	id := uuid.New().String()
	ext := chooseExtension(mtype, file.Filename)
	upload := &Upload{
		ID:       id,
		Path:     filepath.Join(s.dir, TempPrefix+id+ext),
		Filename: file.Filename,
		Ext:      ext,
		MIME:     mtype.String(),
		Size:     file.Size,
	}

	if err := writeFile(src, upload.Path); err != nil {
		// A partial file may exist
		_ = os.Remove(upload.Path)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	s.log.Debug().
		Str("upload_id", id).
		Str("filename", file.Filename).
		Str("mime", upload.MIME).
		Int64("size", upload.Size).
		Msg("Upload stored")
	return upload, nil
}

// Remove deletes the upload's temp file. Removing a file that is already gone is not an error.
func (s *TempStore) Remove(u *Upload) error {
	if u == nil {
		return nil
	}
	if err := os.Remove(u.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", u.Path, err)
	}
	return nil
}

// Leftovers lists upload files currently present in the directory
func (s *TempStore) Leftovers() ([]string, error) {
	return filepath.Glob(filepath.Join(s.dir, TempPrefix+"*"))
}

// Sweep removes uploads older than maxAge, e.g. files orphaned by a crashed process
func (s *TempStore) Sweep(maxAge time.Duration) (int, error) {
	paths, err := s.Leftovers()
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(p); err != nil {
			s.log.Warn().Err(err).Str("path", p).Msg("Failed to remove stale upload")
			continue
		}
		removed++
	}
	return removed, nil
}

// CheckWritable verifies a file can be created in the upload directory
func (s *TempStore) CheckWritable() error {
	f, err := os.CreateTemp(s.dir, ".ready_*")
	if err != nil {
		return fmt.Errorf("upload directory not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// chooseExtension prefers a sniffed audio/video type, then the client's extension
func chooseExtension(mtype *mimetype.MIME, filename string) string {
	if isMedia(mtype) && mtype.Extension() != "" {
		return mtype.Extension()
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && len(ext) <= 6 && !strings.ContainsAny(ext, `/\ `) {
		return ext
	}
	return ".bin"
}

func isMedia(mtype *mimetype.MIME) bool {
	if mtype == nil {
		return false
	}
	name := mtype.String()
	return strings.HasPrefix(name, "audio/") || strings.HasPrefix(name, "video/") || mtype.Is("application/ogg")
}

/* helper */
func writeFile(src io.Reader, dst string) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
