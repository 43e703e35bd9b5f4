package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS3ConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     S3Config
		wantErr string
	}{
		{
			name:    "missing bucket",
			cfg:     S3Config{Region: "us-east-1"},
			wantErr: "bucket required",
		},
		{
			name:    "missing region",
			cfg:     S3Config{Bucket: "b"},
			wantErr: "region required",
		},
		{
			name:    "access key without secret",
			cfg:     S3Config{Bucket: "b", Region: "us-east-1", AccessKey: "AK"},
			wantErr: "must be set together",
		},
		{
			name:    "bad endpoint",
			cfg:     S3Config{Bucket: "b", Region: "us-east-1", Endpoint: "not a url"},
			wantErr: "invalid endpoint",
		},
		{
			name: "valid with credential chain",
			cfg:  S3Config{Bucket: "b", Region: "us-east-1"},
		},
		{
			name: "valid with static keys and endpoint",
			cfg: S3Config{
				Bucket: "b", Region: "us-east-1",
				AccessKey: "AK", SecretKey: "SK",
				Endpoint: "http://localhost:9000",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}

func TestValidKey(t *testing.T) {
	assert.True(t, validKey("database/index.json"))
	assert.False(t, validKey(""))
	assert.False(t, validKey("/absolute"))
	assert.False(t, validKey("a/../b"))
}
