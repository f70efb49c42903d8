package types

import "encoding/json"

// OutputPath is the filesystem-like identifier of a derivation's realized
// output. It is the dedup key for the traversal; it may be absent for a
// derivation unbuildable on the target platform, in which case the
// derivation's record still emits but never contributes to dedup.
type OutputPath string

// BuildInputType distinguishes the three build-input edge subtypes. They
// carry no traversal-behavior difference, only usage semantics, and
// serialize as their literal string payload.
type BuildInputType string

const (
	BuildInputTypeBuildInput BuildInputType = "build_input"
	BuildInputTypePropagated BuildInputType = "propagated_build_input"
	BuildInputTypeNative     BuildInputType = "native_build_input"
)

// Output is one named output of a derivation (e.g. "out", "dev", "doc").
type Output struct {
	Name       string     `json:"name"`
	OutputPath OutputPath `json:"outputPath,omitempty"`
}

// ParsedName is the package-name-and-version decomposition of a
// derivation's nix `name`, e.g. "trivial-1.0" -> {Name: "trivial",
// Version: "1.0"}. Not every derivation name parses cleanly, so Name may
// be absent while Version is still reported.
type ParsedName struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version"`
}

// License is one SPDX-identified license entry from nixpkgs metadata.
type License struct {
	SPDXID   string `json:"spdxId,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// NixpkgsMetadata is the subset of a derivation's `meta` attribute set
// that the describer expression extracts. Every field is optional: a
// derivation may declare none, some, or all of them.
type NixpkgsMetadata struct {
	Pname       string    `json:"pname,omitempty"`
	Version     string    `json:"version,omitempty"`
	Broken      bool      `json:"broken,omitempty"`
	Description string    `json:"description,omitempty"`
	Homepage    string    `json:"homepage,omitempty"`
	Licenses    []License `json:"licenses,omitempty"`
}

// Source describes the fetched origin of a derivation, when the
// describer can determine one (e.g. a fetchgit-style source).
type Source struct {
	GitRepoURL string `json:"gitRepoUrl,omitempty"`
	Rev        string `json:"rev,omitempty"`
}

// BuildInputEdge is one dependency edge out of a Record's build_inputs.
// OutputPath is absent for an unbuildable build input; such an edge
// still appears in the emitted record but is never enqueued.
type BuildInputEdge struct {
	AttributePath  AttributePath  `json:"attributePath"`
	BuildInputType BuildInputType `json:"buildInputType"`
	OutputPath     OutputPath     `json:"outputPath,omitempty"`
}

// Record is the wire form of one described derivation ("Derivation" in
// spec terms). A nil optional pointer field is omitted on the wire, never
// serialized as null.
type Record struct {
	AttributePath   AttributePath    `json:"attributePath"`
	DerivationPath  string           `json:"derivationPath"`
	OutputPath      OutputPath       `json:"outputPath,omitempty"`
	Outputs         []Output         `json:"outputs"`
	Name            string           `json:"name"`
	ParsedName      *ParsedName      `json:"parsedName,omitempty"`
	NixpkgsMetadata *NixpkgsMetadata `json:"nixpkgsMetadata,omitempty"`
	Src             *Source          `json:"src,omitempty"`
	BuildInputs     []BuildInputEdge `json:"buildInputs"`
}

// ParseRecord parses one JSON document into a Record. It is the `parse`
// operation of the record model: a Record round-trips through
// SerializeRecord/ParseRecord unchanged for any well-formed input.
func ParseRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Outputs == nil {
		r.Outputs = []Output{}
	}
	if r.BuildInputs == nil {
		r.BuildInputs = []BuildInputEdge{}
	}
	return &r, nil
}

// SerializeRecord serializes a Record to its JSONL wire form: one JSON
// document with no trailing newline. Callers append the newline
// themselves when writing to a JSONL stream (see graph.Sink).
func SerializeRecord(r *Record) ([]byte, error) {
	return json.Marshal(r)
}
