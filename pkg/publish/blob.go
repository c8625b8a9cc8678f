package publish

import (
	"bytes"
	"encoding/json"
)

// ObjectKeySuffix is appended to the record ID to form the storage key
const ObjectKeySuffix = "summary.json"

// ObjectKey returns the storage key for a record. The record ID is used as-is;
// callers validate it with ValidateRecordID first.
func ObjectKey(recordID string) string {
	return recordID + "/" + ObjectKeySuffix
}

// BuildBlob maps a validated request onto its canonical stored form.
func BuildBlob(req *PublishRequest) *CanonicalBlob {
	blob := &CanonicalBlob{
		Title:       req.Title,
		Summary:     req.SummaryHTML,
		ContentType: req.ContentType,
		Date:        req.Date,
		RecordID:    req.RecordID,
	}

	switch {
	case req.TranslationHTML != "":
		blob.Full = req.TranslationHTML
	case req.FullHTML != "":
		blob.Full = req.FullHTML
	}

	// A URL without its name is dropped.
	if req.SourceName != "" {
		blob.Source = &BlobSource{Name: req.SourceName, URL: req.SourceURL}
	}
	if req.OriginalTitle != "" {
		blob.Original = &BlobOriginal{Title: req.OriginalTitle, URL: req.OriginalURL}
	}

	if !isFalsyJSON(req.Authors) {
		blob.Authors = req.Authors
	}

	return blob
}

// isFalsyJSON reports whether raw is absent or one of the JSON scalars treated
// as "not provided": null, "", false, 0. Empty arrays and objects are kept.
func isFalsyJSON(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return true
	}
	switch string(v) {
	case "null", `""`, "false":
		return true
	}
	if v[0] != '-' && (v[0] < '0' || v[0] > '9') {
		return false
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		f, err := n.Float64()
		return err == nil && f == 0
	}
	return false
}
