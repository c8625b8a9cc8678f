package publish

import (
	"bytes"
	"encoding/json"
)

// ContentType classifies a published record
type ContentType string

const (
	ContentTypeArticle   ContentType = "article"
	ContentTypePodcast   ContentType = "podcast"
	ContentTypeGuideline ContentType = "guideline"
	ContentTypeDigest    ContentType = "digest"
)

// ContentTypes lists the accepted content types in their canonical order.
var ContentTypes = []ContentType{
	ContentTypeArticle,
	ContentTypePodcast,
	ContentTypeGuideline,
	ContentTypeDigest,
}

// IsValid reports whether the content type is one of ContentTypes
func (c ContentType) IsValid() bool {
	for _, ct := range ContentTypes {
		if c == ct {
			return true
		}
	}
	return false
}

// PublishRequest is the body accepted by the publish endpoint
type PublishRequest struct {
	RecordID    string      `json:"recordId"`
	ContentType ContentType `json:"contentType"`
	Title       string      `json:"title"`
	SummaryHTML string      `json:"summaryHtml"`
	Date        string      `json:"date"`

	// TranslationHTML and FullHTML are synonyms; the first non-empty wins.
	TranslationHTML string `json:"translationHtml,omitempty"`
	FullHTML        string `json:"fullHtml,omitempty"`

	SourceName    string `json:"sourceName,omitempty"`
	SourceURL     string `json:"sourceUrl,omitempty"`
	OriginalTitle string `json:"originalTitle,omitempty"`
	OriginalURL   string `json:"originalUrl,omitempty"`

	// Authors is passed through to the blob without inspection.
	Authors json.RawMessage `json:"authors,omitempty"`
}

// CanonicalBlob is the compact document persisted at ObjectKey(recordId).
// Field order is part of the format.
type CanonicalBlob struct {
	Title       string          `json:"t"`
	Summary     string          `json:"s"`
	ContentType ContentType     `json:"y"`
	Date        string          `json:"d"`
	RecordID    string          `json:"r"`
	Full        string          `json:"f,omitempty"`
	Source      *BlobSource     `json:"src,omitempty"`
	Original    *BlobOriginal   `json:"orig,omitempty"`
	Authors     json.RawMessage `json:"a,omitempty"`
}

// BlobSource names the publication a record was taken from
type BlobSource struct {
	Name string `json:"n"`
	URL  string `json:"u,omitempty"`
}

// BlobOriginal points at the untranslated original
type BlobOriginal struct {
	Title string `json:"t"`
	URL   string `json:"u,omitempty"`
}

// Marshal serializes the blob as compact UTF-8 JSON. HTML characters are not
// escaped and no trailing newline is written.
func (b *CanonicalBlob) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// PutOptions carries the HTTP attributes attached to a stored object
type PutOptions struct {
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// PutResult describes a completed write
type PutResult struct {
	ETag string
	Size int64
}

// Result is the outcome of a successful Publish call
type Result struct {
	RecordID string
	Key      string
	CDNURL   string
	Skipped  bool
	Size     int64
	ETag     string
}
