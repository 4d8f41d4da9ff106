package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	FileURL  string `json:"fileUrl" validate:"required"`
	FileType string `json:"fileType" validate:"omitempty,is-file-kind"`
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	t.Parallel()

	v := New()
	err := v.Validate(&sampleRequest{})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	// Errors are keyed by the json tag, not the Go field name.
	assert.Contains(t, vErr.Errors, "fileUrl")
	assert.NotContains(t, vErr.Errors, "FileURL")
}

func TestValidate_FileKindRule(t *testing.T) {
	t.Parallel()

	v := New()

	err := v.Validate(&sampleRequest{FileURL: "/files/a.png", FileType: "image"})
	assert.NoError(t, err)

	err = v.Validate(&sampleRequest{FileURL: "/files/a.png", FileType: "spreadsheet"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Errors["fileType"], "image, video, audio, pdf")
}
