package fge

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxGraphLength is the maximum textual length of a filter_complex
// description, per spec.md §6.
const MaxGraphLength = 2000

// AllowedFilters is the vocabulary of ffmpeg filter names the Filter-Graph
// Executor is permitted to invoke. Dynamic construction of filter graphs is
// source-code friendly but risky, so every graph handed to [Executor.Run]
// must be built through [Builder] and pass [Builder.Validate], which rejects
// any filter name outside this set.
var AllowedFilters = map[string]bool{
	"afade": true, "acrossfade": true, "volume": true, "atrim": true,
	"adelay": true, "aformat": true, "aecho": true, "areverb": true,
	"acompressor": true, "sidechaincompress": true, "anull": true,
	"amix": true, "amerge": true, "asplit": true, "asetrate": true,
	"atempo": true, "asetpts": true, "bandpass": true, "highpass": true,
	"lowpass": true, "equalizer": true, "alimiter": true, "aresample": true,
	"aloop": true, "concat": true,
}

// filterToken matches a filter name within a filter_complex chain: an
// identifier immediately preceded by the start of a chain segment or a
// stream-label group ("[...]") and immediately followed by "=", "," ";",
// "[", or the end of the string. This is intentionally narrow — it is not a
// general ffmpeg filtergraph parser, only a validator for graphs this
// package itself constructs via [Builder].
var filterToken = regexp.MustCompile(`(?:^|[,;]|\])([A-Za-z_][A-Za-z0-9_]*)(?:=|,|;|\[|$)`)

// Builder assembles a filter_complex description incrementally, one labeled
// chain at a time, and validates the result before it is handed to an
// [Executor].
type Builder struct {
	chains []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddChain appends a complete filter chain (e.g. "[0:a]afade=t=out:d=2[a]")
// to the graph. Chains are joined with ";" in the order added.
func (b *Builder) AddChain(chain string) *Builder {
	b.chains = append(b.chains, chain)
	return b
}

// Build returns the assembled filter_complex string.
func (b *Builder) Build() string {
	return strings.Join(b.chains, ";")
}

// Validate checks graph against [MaxGraphLength] and [AllowedFilters].
// Returns an error naming the first violation found.
func Validate(graph string) error {
	if len(graph) > MaxGraphLength {
		return fmt.Errorf("fge: graph length %d exceeds max %d", len(graph), MaxGraphLength)
	}
	for _, m := range filterToken.FindAllStringSubmatch(graph, -1) {
		name := m[1]
		if !AllowedFilters[name] {
			return fmt.Errorf("fge: filter %q is not in the allowed vocabulary", name)
		}
	}
	return nil
}

// BuildAndValidate is a convenience that calls [Builder.Build] then
// [Validate].
func (b *Builder) BuildAndValidate() (string, error) {
	g := b.Build()
	if err := Validate(g); err != nil {
		return "", err
	}
	return g, nil
}
