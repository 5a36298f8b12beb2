// Package parse implements the two textual grammars a schedule document carries:
// demand-keys from the "Chunk paths" object keys, and path-strings from its value
// arrays. The token-scanning style (strings.Fields + strconv over pre-read text)
// treats each grammar as a fixed field layout rather than a general-purpose DSL.
package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// Demand is the parsed form of a "Demand at <dst> for chunk <chunk> from <src> met by
// epoch <end_epoch>" key.
type Demand struct {
	Dst, Chunk, Src, EndEpoch int
}

// DemandKey parses one "Chunk paths" object key. Non-matching keys return an error;
// the caller reports and skips them rather than aborting the load.
func DemandKey(key string) (Demand, error) {
	fields := strings.Fields(key)
	// Demand at <dst> for chunk <chunk> from <src> met by epoch <end_epoch>
	if len(fields) != 12 {
		return Demand{}, fmt.Errorf("demand key %q: expected 12 fields, got %d", key, len(fields))
	}
	want := map[int]string{0: "Demand", 1: "at", 3: "for", 4: "chunk", 6: "from", 8: "met", 9: "by", 10: "epoch"}
	for idx, tok := range want {
		if fields[idx] != tok {
			return Demand{}, fmt.Errorf("demand key %q: expected %q at field %d, got %q", key, tok, idx, fields[idx])
		}
	}
	dst, err := strconv.Atoi(fields[2])
	if err != nil {
		return Demand{}, fmt.Errorf("demand key %q: bad dst: %w", key, err)
	}
	chunk, err := strconv.Atoi(fields[5])
	if err != nil {
		return Demand{}, fmt.Errorf("demand key %q: bad chunk: %w", key, err)
	}
	src, err := strconv.Atoi(fields[7])
	if err != nil {
		return Demand{}, fmt.Errorf("demand key %q: bad src: %w", key, err)
	}
	end, err := strconv.Atoi(fields[11])
	if err != nil {
		return Demand{}, fmt.Errorf("demand key %q: bad end_epoch: %w", key, err)
	}
	return Demand{Dst: dst, Chunk: chunk, Src: src, EndEpoch: end}, nil
}

// Step is the parsed form of one "<src>-><dst> in epoch <e> via switches s1 -> s2 -> ..."
// path-string: one hop of a demand chain, plus the switches it traverses.
type Step struct {
	Src, Dst, Epoch int
	Switches        []int
}

// PathString parses one hop line of a demand chain. Switch count may be zero
// (directly connected). Malformed path-strings return an error and are skipped by the
// caller.
func PathString(s string) (Step, error) {
	const epochMarker = " in epoch "
	idx := strings.Index(s, epochMarker)
	if idx < 0 {
		return Step{}, fmt.Errorf("path-string %q: missing %q", s, strings.TrimSpace(epochMarker))
	}
	edge := strings.TrimSpace(s[:idx])
	src, dst, err := parseEdge(edge)
	if err != nil {
		return Step{}, fmt.Errorf("path-string %q: %w", s, err)
	}

	rest := s[idx+len(epochMarker):]
	fields := strings.Fields(rest)
	if len(fields) < 1 {
		return Step{}, fmt.Errorf("path-string %q: missing epoch value", s)
	}
	epoch, err := strconv.Atoi(fields[0])
	if err != nil {
		return Step{}, fmt.Errorf("path-string %q: bad epoch %q: %w", s, fields[0], err)
	}

	var switches []int
	if len(fields) > 1 {
		if fields[1] != "via" || len(fields) < 3 || fields[2] != "switches" {
			return Step{}, fmt.Errorf("path-string %q: expected \"via switches\" after epoch", s)
		}
		for _, tok := range fields[3:] {
			if tok == "->" {
				continue
			}
			n, err := strconv.Atoi(tok)
			if err != nil {
				return Step{}, fmt.Errorf("path-string %q: bad switch id %q: %w", s, tok, err)
			}
			switches = append(switches, n)
		}
	}

	return Step{Src: src, Dst: dst, Epoch: epoch, Switches: switches}, nil
}

// parseEdge splits a "<src>-><dst>" token (no surrounding spaces around "->") into its
// two integer endpoints.
func parseEdge(edge string) (int, int, error) {
	parts := strings.SplitN(edge, "->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed edge %q", edge)
	}
	src, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("bad src in edge %q: %w", edge, err)
	}
	dst, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("bad dst in edge %q: %w", edge, err)
	}
	return src, dst, nil
}

// FlowLine7 parses one "7-Flows" entry of the form "... traveled over <src>-><dst> in
// epoch <e>". Only the trailing edge/epoch is meaningful; everything before
// "traveled over " is descriptive prose carried from the original schedule generator.
func FlowLine7(s string) (Step, error) {
	const marker = "traveled over "
	idx := strings.Index(s, marker)
	if idx < 0 {
		return Step{}, fmt.Errorf("7-flows line %q: missing %q", s, strings.TrimSpace(marker))
	}
	return PathString(s[idx+len(marker):])
}
