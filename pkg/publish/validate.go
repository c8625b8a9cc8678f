package publish

import (
	"fmt"
	"strings"
)

// Validate checks that the required fields are present and that the content
// type is known. Optional fields are not inspected.
func Validate(req *PublishRequest) error {
	if req == nil {
		req = &PublishRequest{}
	}

	required := []struct {
		name  string
		value string
	}{
		{"recordId", req.RecordID},
		{"contentType", string(req.ContentType)},
		{"title", req.Title},
		{"summaryHtml", req.SummaryHTML},
		{"date", req.Date},
	}

	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{
			Code:    CodeMissingFields,
			Message: "Missing required fields: " + strings.Join(missing, ", "),
		}
	}

	if !req.ContentType.IsValid() {
		allowed := make([]string, len(ContentTypes))
		for i, ct := range ContentTypes {
			allowed[i] = string(ct)
		}
		return &ValidationError{
			Code:    CodeInvalidContentType,
			Message: "Invalid contentType. Must be one of: " + strings.Join(allowed, ", "),
		}
	}

	return nil
}

// ValidateRecordID rejects record IDs that would not map to exactly one key
// segment: path separators, dot segments and control characters.
func ValidateRecordID(id string) error {
	invalid := func(reason string) error {
		return &ValidationError{
			Code:    CodeInvalidRecordID,
			Message: fmt.Sprintf("Invalid recordId %q: %s", id, reason),
		}
	}

	if id == "." || id == ".." {
		return invalid("dot segments are not allowed")
	}
	if strings.ContainsAny(id, `/\`) {
		return invalid("path separators are not allowed")
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return invalid("control characters are not allowed")
		}
	}
	return nil
}
