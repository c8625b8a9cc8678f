package publish_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/summary-publish/pkg/publish"
)

func completeRequest() *publish.PublishRequest {
	return &publish.PublishRequest{
		RecordID:    "rec123",
		ContentType: publish.ContentTypeArticle,
		Title:       "Title",
		SummaryHTML: "<p>Summary</p>",
		Date:        "2024-05-01",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*publish.PublishRequest)
		wantCode string
		wantMsg  string
	}{
		{
			name:   "complete request",
			mutate: func(*publish.PublishRequest) {},
		},
		{
			name:     "missing title",
			mutate:   func(r *publish.PublishRequest) { r.Title = "" },
			wantCode: publish.CodeMissingFields,
			wantMsg:  "Missing required fields: title",
		},
		{
			name: "all missing in declared order",
			mutate: func(r *publish.PublishRequest) {
				*r = publish.PublishRequest{}
			},
			wantCode: publish.CodeMissingFields,
			wantMsg:  "Missing required fields: recordId, contentType, title, summaryHtml, date",
		},
		{
			name: "missing fields reported before bad content type",
			mutate: func(r *publish.PublishRequest) {
				r.ContentType = "video"
				r.Date = ""
			},
			wantCode: publish.CodeMissingFields,
			wantMsg:  "Missing required fields: date",
		},
		{
			name:     "unknown content type",
			mutate:   func(r *publish.PublishRequest) { r.ContentType = "video" },
			wantCode: publish.CodeInvalidContentType,
			wantMsg:  "Invalid contentType. Must be one of: article, podcast, guideline, digest",
		},
		{
			name:     "content type is case sensitive",
			mutate:   func(r *publish.PublishRequest) { r.ContentType = "Article" },
			wantCode: publish.CodeInvalidContentType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := completeRequest()
			tt.mutate(req)

			err := publish.Validate(req)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, publish.ErrValidation))

			var verr *publish.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantCode, verr.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, verr.Error())
			}
		})
	}
}

func TestValidate_AllContentTypes(t *testing.T) {
	for _, ct := range publish.ContentTypes {
		req := completeRequest()
		req.ContentType = ct
		assert.NoError(t, publish.Validate(req), ct)
	}
}

func TestValidateRecordID(t *testing.T) {
	valid := []string{"rec123", "recABCdef", "a.b", "запись-1", "..."}
	for _, id := range valid {
		assert.NoError(t, publish.ValidateRecordID(id), id)
	}

	invalid := []string{".", "..", "a/b", "/abs", `a\b`, "a\nb", "tab\there", "del\x7f"}
	for _, id := range invalid {
		err := publish.ValidateRecordID(id)
		require.Error(t, err, id)

		var verr *publish.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, publish.CodeInvalidRecordID, verr.Code)
	}
}
