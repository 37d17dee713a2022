package worker

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
)

func TestProtoCookieToHTTP(t *testing.T) {
	c := &proto.NetworkCookie{
		Name:   "session",
		Value:  "abc123",
		Domain: "portal.example.com",
		Path:   "/",
	}

	got := protoCookieToHTTP(c)

	assert.Equal(t, "session", got.Name)
	assert.Equal(t, "abc123", got.Value)
	assert.Equal(t, "portal.example.com", got.Domain)
	assert.Equal(t, "/", got.Path)
}
