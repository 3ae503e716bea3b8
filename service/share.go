package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/krisalay/sharecache/api"
	"github.com/krisalay/sharecache/jobs"
	"github.com/krisalay/sharecache/log"
	"github.com/krisalay/sharecache/notify"
	"github.com/krisalay/sharecache/thumbnail"
	"github.com/krisalay/sharecache/types"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Options struct {
	ThumbnailEnabled bool
	ThumbnailSize    int

	// ThumbnailMaxPixels caps the images decoded for thumbnails. Zero uses the default.
	ThumbnailMaxPixels int64

	// Locales are BCP 47 tags offered to clients.
	Locales []string
}

// LocaleInfo names a locale in its own language.
type LocaleInfo struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

// LabelAndValue is one selectable choice.
type LabelAndValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

/*
Share is what clients talk to. It composes the file cache, the text cache and
the OCR job streams; every method is a thin step in front of one of them.
*/
type Share struct {
	files api.Cache[types.Blob]
	texts api.Cache[types.Text]
	jobs  api.ResultStreams

	// nil when thumbnails are disabled
	thumbnails *thumbnail.Generator

	locales []LocaleInfo
}

func New(files api.Cache[types.Blob], texts api.Cache[types.Text], streams api.ResultStreams, opts Options) (*Share, error) {
	s := &Share{
		files: files,
		texts: texts,
		jobs:  streams,
	}
	if opts.ThumbnailEnabled {
		s.thumbnails = thumbnail.NewGenerator(opts.ThumbnailSize, opts.ThumbnailMaxPixels)
	}

	locales, err := localeInfos(opts.Locales)
	if err != nil {
		return nil, err
	}
	s.locales = locales
	return s, nil
}

func localeInfos(tags []string) ([]LocaleInfo, error) {
	out := make([]LocaleInfo, 0, len(tags))
	for _, raw := range tags {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		tag, err := language.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidInput, "locale %q: %v", raw, err)
		}
		name := display.Self.Name(tag)
		if name == "" {
			name = tag.String()
		}
		out = append(out, LocaleInfo{Name: name, Tag: tag.String()})
	}
	return out, nil
}

//
// ================= FILES =================
//

/*
UploadFile stores an uploaded file.

Image dimensions are read when the bytes decode as an image; a thumbnail is
attached when enabled. Neither is required: any file can be shared. The
returned handle is "<name>_<size>_<id>".
*/
func (s *Share) UploadFile(name, contentType string, data []byte) (*types.Entry[types.Blob], string, error) {
	if len(data) == 0 {
		return nil, "", errors.Wrap(ErrInvalidInput, "empty file")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	blob := types.Blob{
		Name:        name,
		ContentType: contentType,
		Data:        data,
	}

	if w, h, err := thumbnail.Dimensions(data); err == nil {
		blob.Width, blob.Height = w, h
		if s.thumbnails != nil {
			thumb, err := s.thumbnails.Generate(data)
			if err != nil {
				log.Warn("thumbnail failed", zap.String("name", name), zap.Error(err))
			} else {
				blob.Thumbnail = thumb
			}
		}
	}

	ent := s.files.Insert(blob, 0)
	return ent, fmt.Sprintf("%s_%d_%s", name, len(data), ent.ID), nil
}

func (s *Share) DownloadFile(id string) (*types.Entry[types.Blob], error) {
	ent, ok := s.files.Get(id)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "file %s", id)
	}
	return ent, nil
}

// Thumbnail returns the JPEG thumbnail of a file, if it has one.
func (s *Share) Thumbnail(id string) ([]byte, error) {
	ent, err := s.DownloadFile(id)
	if err != nil {
		return nil, err
	}
	if ent.Payload.Thumbnail == nil {
		return nil, errors.Wrapf(ErrNotFound, "thumbnail of %s", id)
	}
	return ent.Payload.Thumbnail.Data, nil
}

func (s *Share) FileKeys() []string {
	return s.files.Keys()
}

func (s *Share) Files() []types.Summary {
	return lo.Map(s.files.Values(), func(e *types.Entry[types.Blob], _ int) types.Summary {
		return e.Summary()
	})
}

func (s *Share) DeleteFile(id string) {
	s.files.Remove(id)
}

func (s *Share) DeleteAllFiles() {
	s.files.Clear()
}

func (s *Share) SubscribeFiles(ctx context.Context) *notify.Subscription {
	return s.files.Subscribe(ctx)
}

//
// ================= TEXTS =================
//

func (s *Share) UploadText(text string) (*types.Entry[types.Text], error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Wrap(ErrInvalidInput, "empty text")
	}
	return s.texts.Insert(types.Text{Text: text}, 0), nil
}

func (s *Share) Texts() []types.Summary {
	return lo.Map(s.texts.Values(), func(e *types.Entry[types.Text], _ int) types.Summary {
		return e.Summary()
	})
}

func (s *Share) DeleteText(id string) {
	s.texts.Remove(id)
}

func (s *Share) DeleteAllTexts() {
	s.texts.Clear()
}

func (s *Share) SubscribeTexts(ctx context.Context) *notify.Subscription {
	return s.texts.Subscribe(ctx)
}

//
// ================= OCR =================
//

func (s *Share) OpenResults(session string) *jobs.Channel {
	return s.jobs.Open(session)
}

func (s *Share) CloseResults(session string, ch *jobs.Channel) {
	s.jobs.Close(session, ch)
}

/*
OCRCachedFile recognizes a file that is already shared. The bytes are read
from the cache on the worker, so a file that expires in between yields an
error result rather than a stale read.
*/
func (s *Share) OCRCachedFile(id, session string) {
	contentType := ""
	if ent, ok := s.files.Get(id); ok {
		contentType = ent.Payload.ContentType
	}
	s.jobs.Dispatch(session, func(context.Context) ([]byte, error) {
		ent, ok := s.files.Get(id)
		if !ok {
			return nil, errors.Newf("file %s not found or expired", id)
		}
		return ent.Payload.Data, nil
	}, contentType)
}

// OCRUpload recognizes bytes that are not stored in the cache.
func (s *Share) OCRUpload(data []byte, contentType, session string) {
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data)
	}
	s.jobs.Dispatch(session, func(context.Context) ([]byte, error) {
		if len(data) == 0 {
			return nil, errors.Wrap(ErrInvalidInput, "empty file")
		}
		return data, nil
	}, contentType)
}

// OCROptions lists the shared files as choices labelled "<id>  (<name>)".
func (s *Share) OCROptions() []LabelAndValue {
	return lo.Map(s.files.Values(), func(e *types.Entry[types.Blob], _ int) LabelAndValue {
		return LabelAndValue{
			Label: e.ID + "  (" + e.Payload.Name + ")",
			Value: e.ID,
		}
	})
}

func (s *Share) Locales() []LocaleInfo {
	return s.locales
}
