package types

import "time"

/*
Payload is what an Entry carries. The cache never looks inside a payload except
to build the Summary that travels with an ADD event, so the two payload kinds
(Blob and Text) only have to describe themselves.
*/
type Payload interface {
	Describe() Descriptor
}

// Descriptor is the display metadata of a payload. It never contains payload bytes.
type Descriptor struct {
	Name        string
	ContentType string
	Width       int
	Height      int
	Size        int
}

// Entry is one cached item. Entries are never mutated after insertion.
type Entry[P Payload] struct {
	ID        string
	Payload   P
	CreatedAt time.Time
	ExpiresAt time.Time // zero => never expires by time
}

// Summary projects the entry into the metadata carried by an ADD event.
func (e *Entry[P]) Summary() Summary {
	d := e.Payload.Describe()
	return Summary{
		ID:          e.ID,
		Name:        d.Name,
		ContentType: d.ContentType,
		Width:       d.Width,
		Height:      d.Height,
		Size:        d.Size,
		ExpiresAt:   e.ExpiresAt,
	}
}

// Thumbnail is a scaled-down copy of an image blob.
type Thumbnail struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"-"`
}

// Blob is an uploaded file. Width and Height are zero when the bytes are not a decodable image.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
	Width       int
	Height      int
	Thumbnail   *Thumbnail
}

func (b Blob) Describe() Descriptor {
	return Descriptor{
		Name:        b.Name,
		ContentType: b.ContentType,
		Width:       b.Width,
		Height:      b.Height,
		Size:        len(b.Data),
	}
}

// Text is a shared text snippet. The snippet itself is its display name.
type Text struct {
	Text string
}

func (t Text) Describe() Descriptor {
	return Descriptor{
		Name:        t.Text,
		ContentType: "text/plain; charset=utf-8",
		Size:        len(t.Text),
	}
}
