package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS3Store_ObjectURL(t *testing.T) {
	t.Run("public URL base wins", func(t *testing.T) {
		s := &S3Store{bucket: "northstar-assets", region: "us-east-1",
			endpoint: "http://localhost:9000", publicURL: "https://cdn.northstarhq.com"}

		assert.Equal(t, "https://cdn.northstarhq.com/avatars/u1.png", s.objectURL("avatars/u1.png"))
	})

	t.Run("custom endpoint path style", func(t *testing.T) {
		s := &S3Store{bucket: "northstar-assets", endpoint: "http://localhost:9000"}

		assert.Equal(t, "http://localhost:9000/northstar-assets/logos/t1.png", s.objectURL("logos/t1.png"))
	})

	t.Run("trailing slash on endpoint is tolerated", func(t *testing.T) {
		s := &S3Store{bucket: "northstar-assets", endpoint: "http://localhost:9000/"}

		assert.Equal(t, "http://localhost:9000/northstar-assets/logos/t1.png", s.objectURL("logos/t1.png"))
	})

	t.Run("plain AWS virtual-hosted URL", func(t *testing.T) {
		s := &S3Store{bucket: "northstar-assets", region: "eu-west-1"}

		assert.Equal(t, "https://northstar-assets.s3.eu-west-1.amazonaws.com/avatars/u1.png", s.objectURL("avatars/u1.png"))
	})
}
