package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemandKeyParsesAllFields(t *testing.T) {
	d, err := DemandKey("Demand at 3 for chunk 2 from 1 met by epoch 5")

	require.NoError(t, err)
	assert.Equal(t, Demand{Dst: 3, Chunk: 2, Src: 1, EndEpoch: 5}, d)
}

func TestDemandKeyRejectsMalformedKey(t *testing.T) {
	_, err := DemandKey("not a demand key")
	require.Error(t, err)
}

func TestPathStringWithSwitches(t *testing.T) {
	s, err := PathString("0->1 in epoch 2 via switches 10 -> 11 -> 12")

	require.NoError(t, err)
	assert.Equal(t, 0, s.Src)
	assert.Equal(t, 1, s.Dst)
	assert.Equal(t, 2, s.Epoch)
	assert.Equal(t, []int{10, 11, 12}, s.Switches)
}

func TestPathStringDirectlyConnected(t *testing.T) {
	s, err := PathString("4->5 in epoch 0 via switches")

	require.NoError(t, err)
	assert.Empty(t, s.Switches)
}

func TestPathStringMissingEpochMarkerIsError(t *testing.T) {
	_, err := PathString("4->5 via switches 1")
	require.Error(t, err)
}

func TestFlowLine7SkipsDescriptivePrefix(t *testing.T) {
	s, err := FlowLine7("chunk 2 of host 0 traveled over 0->1 in epoch 3")

	require.NoError(t, err)
	assert.Equal(t, 0, s.Src)
	assert.Equal(t, 1, s.Dst)
	assert.Equal(t, 3, s.Epoch)
}

func TestFlowLine7MissingMarkerIsError(t *testing.T) {
	_, err := FlowLine7("0->1 in epoch 3")
	require.Error(t, err)
}
