package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueImageKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	require.Equal(t, "issues/1700000000123_pothole.jpg", IssueImageKey(now, "pothole.jpg"))
	require.Equal(t, "issues/1700000000123_my_photo.png", IssueImageKey(now, "C:\\Users\\me\\my photo.png"))
	require.Equal(t, "issues/1700000000123_image", IssueImageKey(now, ""))
}

func TestPublicURL(t *testing.T) {
	require.Equal(t,
		"https://cdn.example.org/gramaalert/issues/1_a%20b.jpg",
		publicURL("https://cdn.example.org", "gramaalert", "issues/1_a b.jpg"))
}
