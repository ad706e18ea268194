package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	assert.Equal(t, "syllabus/1718000000123-Droit_civil__2024_.pdf", ObjectKey("syllabus", "Droit civil (2024).pdf", now))
	assert.Equal(t, "syllabus/1718000000123-cours_d_alg_bre.pdf", ObjectKey("syllabus", "cours d'algèbre.pdf", now))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "2.4 MB", HumanSize(2516582))
	assert.Equal(t, "0.0 MB", HumanSize(10))
	assert.Equal(t, "15.0 MB", HumanSize(15*1024*1024))
}

func TestKeyFromPublicURL(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		base   string
		want   string
		wantOK bool
	}{
		{"cdn base", "https://cdn.flashprint.cd/syllabus/1-a.pdf", "https://cdn.flashprint.cd", "syllabus/1-a.pdf", true},
		{"virtual host", "https://syllabus-files.fra1.digitaloceanspaces.com/syllabus/1-a.pdf", "", "syllabus/1-a.pdf", true},
		{"legacy public path", "https://xyz.supabase.co/storage/v1/object/public/syllabus-files/1700-cours.pdf", "", "1700-cours.pdf", true},
		{"escaped with query", "https://cdn.flashprint.cd/syllabus/1-a%20b.pdf?v=2", "https://cdn.flashprint.cd", "syllabus/1-a b.pdf", true},
		{"foreign host", "https://example.com/file.pdf", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KeyFromPublicURL(tt.raw, "syllabus-files", tt.base)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
