package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.NotEmpty(t, info.BuildTime)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "tickerpulse/"+Version, UserAgent())
}
