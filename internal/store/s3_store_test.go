package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/eminus-watch/internal/model"
)

func TestS3StoreObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{name: "plain prefix", prefix: "eminus-watch", want: "eminus-watch/eminus_tasks.json"},
		{name: "slashes trimmed", prefix: "/state/bot/", want: "state/bot/eminus_tasks.json"},
		{name: "no prefix", prefix: "", want: "eminus_tasks.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewS3Store(model.S3Config{
				Endpoint: "https://s3.example.com",
				Bucket:   "bucket",
				Prefix:   tt.prefix,
				Region:   "us-east-1",
				UseSSL:   true,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.objectKey(NamespaceSeen))
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	data, err := encodeSet(model.NewIDSet("x", "y"))
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"x\",\n  \"y\"\n]\n", string(data))

	set, err := decodeSet(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, set.Items())
}
