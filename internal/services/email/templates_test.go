package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOTP(t *testing.T) {
	html, err := renderOTP("Alice", "042137", 10*time.Minute)

	require.NoError(t, err)
	assert.Contains(t, html, "Alice")
	assert.Contains(t, html, "042137")
	assert.Contains(t, html, "10 minutes")
}

func TestRenderOTP_EscapesName(t *testing.T) {
	html, err := renderOTP("<script>alert(1)</script>", "042137", time.Minute)

	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestRenderLink(t *testing.T) {
	html, err := renderLink("Bob", "https://example.com/api/v1/verify-link?token=abc&email=bob%40example.com")

	require.NoError(t, err)
	assert.Contains(t, html, "Bob")
	assert.Contains(t, html, "verify-link?token=abc")
}

func TestFormatTTL(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want string
	}{
		{time.Minute, "1 minute"},
		{10 * time.Minute, "10 minutes"},
		{90 * time.Second, "1 minute"},
		{time.Hour, "60 minutes"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatTTL(tt.ttl), "ttl=%s", tt.ttl)
	}
}
