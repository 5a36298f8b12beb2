package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigChunkSizeInGB(t *testing.T) {
	doc := []byte(`{
		"TopologyParams": {"num_groups": 2, "leaf_routers": 4, "hosts_per_router": 8, "chunk_size": 0.5},
		"InstanceParams": {"num_chunks": 4, "num_epochs": 3}
	}`)

	cfg, err := ParseConfig(doc)

	require.NoError(t, err)
	assert.Equal(t, 2, cfg.NumGroups)
	assert.Equal(t, 4, cfg.LeafRouters)
	assert.Equal(t, 8, cfg.HostsPerRouter)
	assert.Equal(t, 64, cfg.TotalHosts())
	assert.Equal(t, 4, cfg.NumChunks)
	assert.Equal(t, 3, cfg.NumEpochs)
	assert.Equal(t, uint64(0.5e9), cfg.BytesPerChunk)
}

func TestParseConfigChunkSizeBytesPreferred(t *testing.T) {
	doc := []byte(`{
		"TopologyParams": {"num_groups": 1, "leaf_routers": 1, "hosts_per_router": 2, "chunk_size": 0.1, "chunk_size_bytes": 2048},
		"InstanceParams": {"num_chunks": 1, "num_epochs": 1}
	}`)

	cfg, err := ParseConfig(doc)

	require.NoError(t, err)
	assert.Equal(t, uint64(2048), cfg.BytesPerChunk)
}

func TestParseConfigChunkSizeAboveThresholdTreatedAsBytes(t *testing.T) {
	doc := []byte(`{
		"TopologyParams": {"num_groups": 1, "leaf_routers": 1, "hosts_per_router": 1, "chunk_size": 2000000},
		"InstanceParams": {"num_chunks": 1, "num_epochs": 1}
	}`)

	cfg, err := ParseConfig(doc)

	require.NoError(t, err)
	assert.Equal(t, uint64(2000000), cfg.BytesPerChunk)
}

func TestParseConfigNumEpochsOptional(t *testing.T) {
	doc := []byte(`{
		"TopologyParams": {"num_groups": 1, "leaf_routers": 1, "hosts_per_router": 2, "chunk_size": 1},
		"InstanceParams": {"num_chunks": 1}
	}`)

	cfg, err := ParseConfig(doc)

	require.NoError(t, err)
	assert.Equal(t, 0, cfg.NumEpochs)
}

func TestParseConfigMissingFieldIsFatal(t *testing.T) {
	doc := []byte(`{"TopologyParams": {"num_groups": 1, "leaf_routers": 1, "hosts_per_router": 1, "chunk_size": 1}}`)

	_, err := ParseConfig(doc)

	require.Error(t, err)
}

func TestParseConfigMalformedDocumentIsFatal(t *testing.T) {
	_, err := ParseConfig([]byte(`not json`))
	require.Error(t, err)
}
