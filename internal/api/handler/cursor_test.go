package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor-be/internal/storage"
)

func TestJobCursorRoundTrip(t *testing.T) {
	original := &storage.JobCursor{
		CreatedAt: time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC),
		JobID:     "c5b9a2d1-1111-2222-3333-444455556666",
	}

	encoded := EncodeJobCursor(original)
	decoded, err := DecodeJobCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)

	assert.True(t, decoded.CreatedAt.Equal(original.CreatedAt))
	assert.Equal(t, original.JobID, decoded.JobID)
}

func TestDecodeJobCursor_Empty(t *testing.T) {
	decoded, err := DecodeJobCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeJobCursor_Invalid(t *testing.T) {
	_, err := DecodeJobCursor("not-base64!!!")
	assert.Error(t, err)

	garbage := base64.StdEncoding.EncodeToString([]byte("no-separator"))
	_, err = DecodeJobCursor(garbage)
	assert.Error(t, err)

	badTime := base64.StdEncoding.EncodeToString([]byte("abc|job-id"))
	_, err = DecodeJobCursor(badTime)
	assert.Error(t, err)
}
