package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectURL(t *testing.T) {
	assert.Equal(t,
		"http://localhost:9000/snap/posts/u/a.png",
		ObjectURL("http://localhost:9000", true, "us-east-1", "snap", "posts/u/a.png"))
	assert.Equal(t,
		"https://minio.internal/snap/posts/u/a.png",
		ObjectURL("minio.internal", false, "", "snap", "posts/u/a.png"))
	assert.Equal(t,
		"https://snap.s3.eu-west-1.amazonaws.com/posts/u/a.png",
		ObjectURL("", false, "eu-west-1", "snap", "posts/u/a.png"))
	assert.Equal(t,
		"https://snap.s3.us-east-1.amazonaws.com/k",
		ObjectURL("", false, "", "snap", "k"))
}

func TestKeyFromURL(t *testing.T) {
	assert.Equal(t, "posts/u/a.png", KeyFromURL("snap", "posts/u/a.png"))
	assert.Equal(t, "posts/u/a.png", KeyFromURL("snap", "http://localhost:9000/snap/posts/u/a.png"))
	assert.Equal(t, "posts/u/a.png", KeyFromURL("snap", "https://snap.s3.eu-west-1.amazonaws.com/posts/u/a.png"))
}
