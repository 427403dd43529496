package storage

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// AudioInfo holds best-effort facts about an uploaded file
type AudioInfo struct {
	Format          string
	Title           string
	DurationSeconds *float64
}

// Probe reads tags and, for MP3 files, the decoded duration. Failures leave fields empty.
func Probe(u *Upload) AudioInfo {
	var info AudioInfo
	if u == nil {
		return info
	}

	f, err := os.Open(u.Path)
	if err != nil {
		return info
	}
	defer f.Close()

	if meta, err := tag.ReadFrom(f); err == nil {
		info.Format = string(meta.FileType())
		info.Title = strings.TrimSpace(meta.Title())
	}

	if u.Ext == ".mp3" {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			if dur, err := mp3Duration(f); err == nil && dur > 0 {
				info.DurationSeconds = &dur
			}
		}
	}
	return info
}

func mp3Duration(r io.Reader) (float64, error) {
	decoder := mp3.NewDecoder(r)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}
	return total, nil
}
