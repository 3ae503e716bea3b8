package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/krisalay/sharecache"
	"github.com/krisalay/sharecache/engine"
	"github.com/krisalay/sharecache/expiration"
	"github.com/krisalay/sharecache/jobs"
	"github.com/krisalay/sharecache/types"
)

//
// ================= HELPERS =================
//

type recognizeFunc func(ctx context.Context, data []byte, contentType string) (string, error)

func (f recognizeFunc) Recognize(ctx context.Context, data []byte, contentType string) (string, error) {
	return f(ctx, data, contentType)
}

func echoRecognizer() jobs.Recognizer {
	return recognizeFunc(func(_ context.Context, data []byte, contentType string) (string, error) {
		return contentType + ":" + string(data), nil
	})
}

func newTestShare(t *testing.T, rec jobs.Recognizer, opts Options) *Share {
	t.Helper()

	files := cache.NewShardedCache[types.Blob](cache.Options{
		Name:          "files",
		Capacity:      8,
		Shards:        1,
		Window:        time.Hour,
		SweepInterval: -1,
	}, engine.NewCacheEngine(&expiration.ExpireAfterWrite{TTL: time.Minute}, nil))
	texts := cache.NewShardedCache[types.Text](cache.Options{
		Name:          "texts",
		Capacity:      8,
		Shards:        1,
		Window:        time.Hour,
		SweepInterval: -1,
	}, engine.NewCacheEngine(&expiration.ExpireAfterWrite{TTL: time.Hour}, nil))
	dispatcher := jobs.NewDispatcher(nil, rec, jobs.Options{Workers: 2, DeliveryTimeout: time.Second})

	t.Cleanup(func() {
		_ = dispatcher.Shutdown(time.Second)
		files.Close()
		texts.Close()
	})

	s, err := New(files, texts, dispatcher, opts)
	require.NoError(t, err)
	return s
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func awaitResult(t *testing.T, ch *jobs.Channel) types.Result {
	t.Helper()
	select {
	case r := <-ch.Results():
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no result delivered")
		return types.Result{}
	}
}

//
// ================= FILES =================
//

func TestUploadFile(t *testing.T) {
	s := newTestShare(t, nil, Options{})

	data := []byte("plain bytes")
	ent, handle, err := s.UploadFile("notes.txt", "", data)
	require.NoError(t, err)

	assert.Equal(t, "notes.txt_11_"+ent.ID, handle)
	assert.Equal(t, "text/plain; charset=utf-8", ent.Payload.ContentType)
	assert.Zero(t, ent.Payload.Width)
	assert.Nil(t, ent.Payload.Thumbnail)

	got, err := s.DownloadFile(ent.ID)
	require.NoError(t, err)
	assert.Equal(t, data, got.Payload.Data)

	_, err = s.Thumbnail(ent.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUploadEmptyFile(t *testing.T) {
	s := newTestShare(t, nil, Options{})

	_, _, err := s.UploadFile("empty", "", nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Empty(t, s.FileKeys())
}

func TestUploadImageWithThumbnail(t *testing.T) {
	s := newTestShare(t, nil, Options{ThumbnailEnabled: true, ThumbnailSize: 10})

	ent, _, err := s.UploadFile("pic.png", "", pngBytes(t, 40, 20))
	require.NoError(t, err)

	assert.Equal(t, "image/png", ent.Payload.ContentType)
	assert.Equal(t, 40, ent.Payload.Width)
	assert.Equal(t, 20, ent.Payload.Height)
	require.NotNil(t, ent.Payload.Thumbnail)
	assert.Equal(t, 10, ent.Payload.Thumbnail.Width)
	assert.Equal(t, 5, ent.Payload.Thumbnail.Height)

	thumb, err := s.Thumbnail(ent.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, thumb)
}

func TestUploadHugeCanvasSkipsThumbnail(t *testing.T) {
	s := newTestShare(t, nil, Options{ThumbnailEnabled: true, ThumbnailSize: 10})

	// a 1x1 PNG whose header claims 60000x60000
	data := pngBytes(t, 1, 1)
	binary.BigEndian.PutUint32(data[16:20], 60000)
	binary.BigEndian.PutUint32(data[20:24], 60000)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))

	ent, _, err := s.UploadFile("bomb.png", "", data)
	require.NoError(t, err)
	assert.Equal(t, 60000, ent.Payload.Width)
	assert.Nil(t, ent.Payload.Thumbnail)

	_, err = s.Thumbnail(ent.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUploadImageWithoutThumbnail(t *testing.T) {
	s := newTestShare(t, nil, Options{})

	ent, _, err := s.UploadFile("pic.png", "image/png", pngBytes(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, 4, ent.Payload.Width)
	assert.Nil(t, ent.Payload.Thumbnail)
}

func TestDownloadMissingFile(t *testing.T) {
	s := newTestShare(t, nil, Options{})

	_, err := s.DownloadFile("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFilesListingAndDelete(t *testing.T) {
	s := newTestShare(t, nil, Options{})

	a, _, err := s.UploadFile("a", "", []byte("a"))
	require.NoError(t, err)
	b, _, err := s.UploadFile("b", "", []byte("bb"))
	require.NoError(t, err)

	summaries := s.Files()
	require.Len(t, summaries, 2)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, s.FileKeys())
	for _, sum := range summaries {
		if sum.ID == b.ID {
			assert.Equal(t, "b", sum.Name)
			assert.Equal(t, 2, sum.Size)
		}
	}

	s.DeleteFile(a.ID)
	assert.Equal(t, []string{b.ID}, s.FileKeys())

	s.DeleteAllFiles()
	assert.Empty(t, s.Files())
}

func TestSubscribeFiles(t *testing.T) {
	s := newTestShare(t, nil, Options{})

	sub := s.SubscribeFiles(context.Background())
	ent, _, err := s.UploadFile("a", "", []byte("a"))
	require.NoError(t, err)
	s.files.Close()

	batch, ok := <-sub.C()
	require.True(t, ok)
	require.Len(t, batch, 1)
	assert.Equal(t, types.EventAdded, batch[0].Type)
	assert.Equal(t, ent.ID, batch[0].ID)
	assert.Equal(t, "a", batch[0].Summary.Name)
}

//
// ================= TEXTS =================
//

func TestTexts(t *testing.T) {
	s := newTestShare(t, nil, Options{})

	_, err := s.UploadText("  \n ")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	ent, err := s.UploadText("hello")
	require.NoError(t, err)

	texts := s.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "hello", texts[0].Name)

	s.DeleteText(ent.ID)
	assert.Empty(t, s.Texts())

	_, err = s.UploadText("again")
	require.NoError(t, err)
	s.DeleteAllTexts()
	assert.Empty(t, s.Texts())
}

//
// ================= OCR =================
//

func TestOCRCachedFile(t *testing.T) {
	s := newTestShare(t, echoRecognizer(), Options{})

	ent, _, err := s.UploadFile("scan.png", "image/png", []byte("pixels"))
	require.NoError(t, err)

	ch := s.OpenResults("s1")
	defer s.CloseResults("s1", ch)

	s.OCRCachedFile(ent.ID, "s1")
	r := awaitResult(t, ch)
	assert.Equal(t, types.ResultSuccess, r.Status)
	assert.Equal(t, "image/png:pixels", r.Response)
}

func TestOCRCachedFileMissing(t *testing.T) {
	s := newTestShare(t, echoRecognizer(), Options{})

	ch := s.OpenResults("s1")
	defer s.CloseResults("s1", ch)

	s.OCRCachedFile("gone", "s1")
	r := awaitResult(t, ch)
	assert.Equal(t, types.ResultError, r.Status)
	assert.Equal(t, "file gone not found or expired", r.Response)
}

func TestOCRUpload(t *testing.T) {
	s := newTestShare(t, echoRecognizer(), Options{})

	ch := s.OpenResults("s1")
	defer s.CloseResults("s1", ch)

	s.OCRUpload([]byte("raw"), "image/jpeg", "s1")
	r := awaitResult(t, ch)
	assert.Equal(t, types.ResultSuccess, r.Status)
	assert.Equal(t, "image/jpeg:raw", r.Response)

	s.OCRUpload(nil, "", "s1")
	r = awaitResult(t, ch)
	assert.Equal(t, types.ResultError, r.Status)
	assert.Contains(t, r.Response, "empty file")
}

func TestOCRWithoutRecognizer(t *testing.T) {
	s := newTestShare(t, nil, Options{})

	ch := s.OpenResults("s1")
	defer s.CloseResults("s1", ch)

	s.OCRUpload([]byte("raw"), "image/png", "s1")
	r := awaitResult(t, ch)
	assert.Equal(t, types.ResultError, r.Status)
	assert.Equal(t, jobs.ErrNotConfigured.Error(), r.Response)
}

func TestOCROptions(t *testing.T) {
	s := newTestShare(t, nil, Options{})

	ent, _, err := s.UploadFile("scan.png", "", []byte("x"))
	require.NoError(t, err)

	opts := s.OCROptions()
	require.Len(t, opts, 1)
	assert.Equal(t, ent.ID+"  (scan.png)", opts[0].Label)
	assert.Equal(t, ent.ID, opts[0].Value)
}

//
// ================= LOCALES =================
//

func TestLocales(t *testing.T) {
	s := newTestShare(t, nil, Options{Locales: []string{"en", " ", "zh-TW"}})

	locales := s.Locales()
	require.Len(t, locales, 2)
	assert.Equal(t, LocaleInfo{Name: "English", Tag: "en"}, locales[0])
	assert.Equal(t, "zh-TW", locales[1].Tag)
	assert.NotEmpty(t, locales[1].Name)
}

func TestInvalidLocale(t *testing.T) {
	_, err := New(nil, nil, nil, Options{Locales: []string{"@@"}})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
