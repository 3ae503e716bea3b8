package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/sharecache/eviction"
)

func TestDefaults(t *testing.T) {
	pt, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", pt.Address)
	assert.Equal(t, 20*time.Minute, pt.Image.TTL)
	assert.Equal(t, 128, pt.Image.Timeout.MaxSize)
	assert.Equal(t, eviction.LRU, pt.Image.Eviction)
	assert.Equal(t, 1, pt.Image.Shards)
	assert.Equal(t, 26*time.Hour, pt.Text.TTL)
	assert.Equal(t, 256, pt.Text.Timeout.MaxSize)

	assert.False(t, pt.ThumbnailEnabled)
	assert.Equal(t, 300, pt.ThumbnailSize)
	assert.EqualValues(t, 50_000_000, pt.ThumbnailMaxPixels)

	assert.Equal(t, time.Second, pt.EventWindow)
	assert.Equal(t, 256, pt.EventBufferSize)
	assert.Equal(t, 30*time.Second, pt.JobDeliveryTimeout)

	assert.False(t, pt.OCR.Enabled())
	assert.Equal(t, []string{"en", "zh-TW"}, pt.Locales)
	assert.Equal(t, "info", pt.Log.Level)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sharecache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
image:
  timeout:
    value: 90
    unit: seconds
    maxSize: 4
  shards: 2
  eviction: fifo
thumbnail:
  enabled: true
  size: 120
events:
  window: 250ms
ocr:
  baseURL: http://localhost:11434/v1
  model: llava
`), 0o600))

	pt, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, pt.Image.TTL)
	assert.Equal(t, 4, pt.Image.Timeout.MaxSize)
	assert.Equal(t, 2, pt.Image.Shards)
	assert.Equal(t, eviction.FIFO, pt.Image.Eviction)
	assert.True(t, pt.ThumbnailEnabled)
	assert.Equal(t, 120, pt.ThumbnailSize)
	assert.Equal(t, 250*time.Millisecond, pt.EventWindow)
	assert.True(t, pt.OCR.Enabled())
	assert.Equal(t, "llava", pt.OCR.Model)

	// untouched sections keep their defaults
	assert.Equal(t, 26*time.Hour, pt.Text.TTL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SHARECACHE_TEXT_TIMEOUT_VALUE", "3")
	t.Setenv("SHARECACHE_TEXT_TIMEOUT_UNIT", "DAYS")
	t.Setenv("SHARECACHE_HTTP_ADDRESS", "127.0.0.1:9000")
	t.Setenv("SHARECACHE_LOCALES", "en,ja")

	pt, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, pt.Text.TTL)
	assert.Equal(t, "127.0.0.1:9000", pt.Address)
	assert.Equal(t, []string{"en", "ja"}, pt.Locales)
}

func TestInvalidParams(t *testing.T) {
	cases := map[string]string{
		"SHARECACHE_IMAGE_TIMEOUT_UNIT":   "FORTNIGHTS",
		"SHARECACHE_IMAGE_TIMEOUT_VALUE":  "0",
		"SHARECACHE_TEXT_TIMEOUT_MAXSIZE": "-1",
		"SHARECACHE_IMAGE_EVICTION":       "LFU",
		"SHARECACHE_EVENTS_WINDOW":        "soon",
		"SHARECACHE_EVENTS_BUFFERSIZE":    "0",
		"SHARECACHE_JOBS_DELIVERYTIMEOUT": "-5s",
		"SHARECACHE_THUMBNAIL_MAXPIXELS":  "0",
	}
	for env, value := range cases {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, value)
			_, err := Load("")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParam), err.Error())
		})
	}
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestTimeoutDuration(t *testing.T) {
	d, err := Timeout{Value: 20, Unit: "minutes"}.Duration()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, d)

	_, err = Timeout{Value: 1, Unit: ""}.Duration()
	assert.Error(t, err)
}
