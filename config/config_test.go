package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("TRYON_TIMEOUT", "")
	t.Setenv("AUTO_SUBMIT_DELAY", "")
	t.Setenv("TOKEN_FILE", "/tmp/fitly-test/state.json")

	LoadConfig()

	assert.Equal(t, "http://localhost:8000", APIBaseURL)
	assert.Equal(t, "/api/v1/virtual-tryon", TryOnPath)
	assert.Equal(t, 120*time.Second, TryOnTimeout)
	assert.Equal(t, 3*time.Second, AutoSubmitDelay)
	assert.Equal(t, "/tmp/fitly-test/state.json", TokenFile)
	assert.Equal(t, int64(10<<20), MaxImageBytes)
	assert.False(t, AutoSubmit)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://tryon.example.com")
	t.Setenv("TRYON_TIMEOUT", "45")
	t.Setenv("AUTO_SUBMIT", "true")
	t.Setenv("AUTO_SUBMIT_DELAY", "250ms")
	t.Setenv("MAX_IMAGE_BYTES", "1024")

	LoadConfig()

	assert.Equal(t, "https://tryon.example.com", APIBaseURL)
	assert.Equal(t, 45*time.Second, TryOnTimeout)
	assert.True(t, AutoSubmit)
	assert.Equal(t, 250*time.Millisecond, AutoSubmitDelay)
	assert.Equal(t, int64(1024), MaxImageBytes)
}

func TestGetDurationInvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_TIMEOUT", "soon")
	assert.Equal(t, 5*time.Second, getDuration("SOME_TIMEOUT", 5*time.Second))
}
