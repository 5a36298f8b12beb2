package flowgraph

import (
	"encoding/json"
	"fmt"
	"math"
)

// Config holds the scalar configuration values the Loader reads from the topology/
// instance document: num_chunks, num_epochs, and the topology dimensions used to
// compute total host count and bytes-per-chunk.
type Config struct {
	NumChunks      int
	NumEpochs      int
	NumGroups      int
	LeafRouters    int
	HostsPerRouter int
	BytesPerChunk  uint64
}

// TotalHosts returns num_groups * leaf_routers * hosts_per_router, the Nodes count
// used by the Lowerer.
func (c Config) TotalHosts() int {
	return c.NumGroups * c.LeafRouters * c.HostsPerRouter
}

// ParseConfig decodes the topology/instance document and validates the required
// fields. Missing required fields are fatal, as is a malformed top-level document.
func ParseConfig(data []byte) (Config, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("malformed config document: %w", err)
	}

	topology, err := objectField(raw, "TopologyParams")
	if err != nil {
		return Config{}, err
	}
	instance, err := objectField(raw, "InstanceParams")
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if cfg.NumGroups, err = intField(topology, "num_groups"); err != nil {
		return Config{}, err
	}
	if cfg.LeafRouters, err = intField(topology, "leaf_routers"); err != nil {
		return Config{}, err
	}
	if cfg.HostsPerRouter, err = intField(topology, "hosts_per_router"); err != nil {
		return Config{}, err
	}
	if cfg.NumChunks, err = intField(instance, "num_chunks"); err != nil {
		return Config{}, err
	}
	// num_epochs is read when present (0 otherwise) and exposed on Config, but no
	// component uses it: the original convertTecclSchedule.c never requires it of a
	// bare topology.json, neither the Validator nor the Lowerer touch it, and the
	// Simulator runs to the schedule's own max epoch without comparing the two, per
	// spec.md §9's open question. Required-field
	// enforcement here would regress teccl-lower against a topology-only input.
	cfg.NumEpochs, _ = optIntField(instance, "num_epochs")

	bytesPerChunk, err := chunkBytes(topology)
	if err != nil {
		return Config{}, err
	}
	cfg.BytesPerChunk = bytesPerChunk

	return cfg, nil
}

// chunkBytes resolves the per-chunk byte size: chunk_size_bytes, if present, is used
// directly; otherwise chunk_size is interpreted as gigabytes when below 1e6, or as
// bytes otherwise.
func chunkBytes(topology map[string]json.RawMessage) (uint64, error) {
	if raw, ok := topology["chunk_size_bytes"]; ok {
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return 0, fmt.Errorf("missing required field: 'chunk_size_bytes' is not numeric")
		}
		return uint64(math.Round(v)), nil
	}
	v, err := floatField(topology, "chunk_size")
	if err != nil {
		return 0, fmt.Errorf("missing required field: 'chunk_size' or 'chunk_size_bytes'")
	}
	if v < 1e6 {
		return uint64(math.Round(v * 1e9)), nil
	}
	return uint64(math.Round(v)), nil
}

func objectField(m map[string]json.RawMessage, key string) (map[string]json.RawMessage, error) {
	raw, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("missing required field: %q", key)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("missing required field: %q is not an object", key)
	}
	return obj, nil
}

func intField(m map[string]json.RawMessage, key string) (int, error) {
	raw, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("missing required field: %q", key)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("missing required field: %q is not numeric", key)
	}
	return int(v), nil
}

// optIntField reads an optional numeric field, returning (0, error) if absent or
// non-numeric rather than treating either as fatal.
func optIntField(m map[string]json.RawMessage, key string) (int, error) {
	raw, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("field %q absent", key)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("field %q is not numeric", key)
	}
	return int(v), nil
}

func floatField(m map[string]json.RawMessage, key string) (float64, error) {
	raw, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("missing required field: %q", key)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("missing required field: %q is not numeric", key)
	}
	return v, nil
}
