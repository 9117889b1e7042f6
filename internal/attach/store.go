// Package attach persists message file parts to disk and produces the
// metadata records the repository keeps for them.
package attach

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/relaydesk/relaydesk/internal/imap"
	"github.com/relaydesk/relaydesk/internal/models"
)

// Subdirectories per attachment class.
const (
	imageDir = "images"
	fileDir  = "files"
)

// Store writes attachment content under a base directory, split into an
// image class and a generic file class by declared MIME type.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir. Directories are created lazily
// on first write.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// SaveAll persists every file part for the given email. A write failure for
// one part is logged and does not stop the remaining parts; the returned
// records cover the parts that were written.
func (s *Store) SaveAll(emailID string, parts []imap.FilePart) []*models.EmailAttachment {
	records := make([]*models.EmailAttachment, 0, len(parts))

	for _, part := range parts {
		record, err := s.save(emailID, part)
		if err != nil {
			log.Printf("attach: failed to save %q for email %s: %v", part.FileName, emailID, err)
			continue
		}
		records = append(records, record)
	}

	return records
}

func (s *Store) save(emailID string, part imap.FilePart) (*models.EmailAttachment, error) {
	class := fileDir
	if strings.HasPrefix(strings.ToLower(part.ContentType), "image/") {
		class = imageDir
	}

	dir := filepath.Join(s.baseDir, class)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	name := generateFileName(part.FileName)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, part.Content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	fileName := part.FileName
	if fileName == "" {
		fileName = name
	}

	return &models.EmailAttachment{
		EmailID:   emailID,
		FileName:  fileName,
		FilePath:  filepath.Join(class, name),
		MimeType:  part.ContentType,
		SizeBytes: int64(len(part.Content)),
	}, nil
}

// generateFileName builds a collision-resistant name from a timestamp, a
// random suffix, and the original extension.
func generateFileName(original string) string {
	ext := filepath.Ext(original)
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), suffix, ext)
}
