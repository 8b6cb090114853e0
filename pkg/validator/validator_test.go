package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type transcriptRequest struct {
	Transcript string `validate:"required,notblank"`
}

func TestValidate_Transcript(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&transcriptRequest{Transcript: "Alice: hello"}))
	assert.Error(t, v.Validate(&transcriptRequest{}))
	assert.Error(t, v.Validate(&transcriptRequest{Transcript: " \n\t "}))
}
