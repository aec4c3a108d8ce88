package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(context.Background(), "test-key")
	require.NoError(t, err)

	sc, ok := c.(*sdkClient)
	require.True(t, ok)
	assert.Equal(t, defaultModel, sc.model)
	assert.NotNil(t, sc.client)
}

func TestWithModel(t *testing.T) {
	c, err := NewClient(context.Background(), "test-key", WithModel("gemini-2.5-pro"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", c.(*sdkClient).model)
}

func TestAnchorToolConfig(t *testing.T) {
	tc := anchorToolConfig(&Anchor{Latitude: 30.2672, Longitude: -97.7431})

	require.NotNil(t, tc.RetrievalConfig)
	require.NotNil(t, tc.RetrievalConfig.LatLng)
	require.NotNil(t, tc.RetrievalConfig.LatLng.Latitude)
	require.NotNil(t, tc.RetrievalConfig.LatLng.Longitude)
	assert.InDelta(t, 30.2672, *tc.RetrievalConfig.LatLng.Latitude, 1e-9)
	assert.InDelta(t, -97.7431, *tc.RetrievalConfig.LatLng.Longitude, 1e-9)
}

func TestWithModelEmptyKeepsDefault(t *testing.T) {
	c, err := NewClient(context.Background(), "test-key", WithModel(""))
	require.NoError(t, err)
	assert.Equal(t, defaultModel, c.(*sdkClient).model)
}
