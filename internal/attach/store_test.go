package attach

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/relaydesk/internal/imap"
)

func TestSaveAll(t *testing.T) {
	t.Run("classifies images and files into subdirectories", func(t *testing.T) {
		base := t.TempDir()
		store := NewStore(base)

		records := store.SaveAll("email-1", []imap.FilePart{
			{FileName: "photo.png", ContentType: "image/png", Content: []byte{1, 2, 3}},
			{FileName: "invoice.pdf", ContentType: "application/pdf", Content: []byte{4, 5, 6, 7}},
		})

		require.Len(t, records, 2)

		assert.Equal(t, "photo.png", records[0].FileName)
		assert.Equal(t, "images", filepath.Dir(records[0].FilePath))
		assert.Equal(t, int64(3), records[0].SizeBytes)

		assert.Equal(t, "invoice.pdf", records[1].FileName)
		assert.Equal(t, "files", filepath.Dir(records[1].FilePath))
		assert.Equal(t, int64(4), records[1].SizeBytes)

		for _, record := range records {
			content, err := os.ReadFile(filepath.Join(base, record.FilePath))
			require.NoError(t, err)
			assert.Equal(t, record.SizeBytes, int64(len(content)))
			assert.Equal(t, "email-1", record.EmailID)
		}
	})

	t.Run("keeps the original extension in generated names", func(t *testing.T) {
		store := NewStore(t.TempDir())

		records := store.SaveAll("email-2", []imap.FilePart{
			{FileName: "report.xlsx", ContentType: "application/vnd.ms-excel", Content: []byte("x")},
		})

		require.Len(t, records, 1)
		assert.Equal(t, ".xlsx", filepath.Ext(records[0].FilePath))
	})

	t.Run("generates distinct paths for identical names", func(t *testing.T) {
		store := NewStore(t.TempDir())

		records := store.SaveAll("email-3", []imap.FilePart{
			{FileName: "a.txt", ContentType: "text/plain", Content: []byte("1")},
			{FileName: "a.txt", ContentType: "text/plain", Content: []byte("2")},
		})

		require.Len(t, records, 2)
		assert.NotEqual(t, records[0].FilePath, records[1].FilePath)
	})

	t.Run("handles parts without a file name", func(t *testing.T) {
		store := NewStore(t.TempDir())

		records := store.SaveAll("email-4", []imap.FilePart{
			{ContentType: "application/octet-stream", Content: []byte("data")},
		})

		require.Len(t, records, 1)
		assert.NotEmpty(t, records[0].FileName)
	})
}
