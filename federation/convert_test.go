package federation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commune.social/core/config"
)

func TestCreateTombstone(t *testing.T) {
	updated := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		deleted bool
		updated *time.Time
		wantErr error
	}{
		{"deleted with timestamp", true, &updated, nil},
		{"deleted without timestamp", true, nil, ErrMissingDeletionTimestamp},
		{"not deleted with timestamp", false, &updated, ErrNotDeleted},
		{"not deleted without timestamp", false, nil, ErrNotDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tombstone, err := CreateTombstone(tt.deleted, "https://example.com/post/1", tt.updated, "Page")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://example.com/post/1", tombstone.ID)
			assert.Equal(t, "Tombstone", tombstone.Type)
			assert.Equal(t, "Page", tombstone.FormerType)
			assert.Equal(t, updated, tombstone.Deleted)
		})
	}
}

func TestNewActivityID(t *testing.T) {
	cfg := &config.Federation{Scheme: "https", Hostname: "example.com:8536"}

	id := NewActivityID(cfg)
	assert.True(t, strings.HasPrefix(id, "https://example.com:8536/activities/"))

	// every mint is unique
	assert.NotEqual(t, id, NewActivityID(cfg))
}

func TestSanitizeContent(t *testing.T) {
	assert.Equal(t, "<p>hello</p>", SanitizeContent(`<p onclick="alert(1)">hello</p>`))
	assert.NotContains(t, SanitizeContent(`<script>alert(1)</script>hi`), "script")
}
