// Package reader provides the read-side data access layer for the
// nixtract inspect/stats CLI commands: it loads a previously extracted
// JSONL derivation graph and answers read-only queries against it.
package reader

import "github.com/tweag/nixtract/types"

// BuildInputView is the render-friendly projection of a types.BuildInputEdge.
type BuildInputView struct {
	AttributePath  string `json:"attribute_path"`
	BuildInputType string `json:"build_input_type"`
	OutputPath     string `json:"output_path,omitempty"`
}

// InspectDerivationResponse is the detail view for `nixtract inspect
// <graph> --attribute-path <path>`.
type InspectDerivationResponse struct {
	AttributePath   string            `json:"attribute_path"`
	DerivationPath  string            `json:"derivation_path"`
	OutputPath      string            `json:"output_path,omitempty"`
	Name            string            `json:"name"`
	ParsedName      *ParsedNameView   `json:"parsed_name,omitempty"`
	Licenses        []string          `json:"licenses,omitempty"`
	Homepage        string            `json:"homepage,omitempty"`
	Broken          bool              `json:"broken,omitempty"`
	Src             *SourceView       `json:"src,omitempty"`
	BuildInputCount int               `json:"build_input_count"`
	BuildInputs     []BuildInputView  `json:"build_inputs"`
}

// ParsedNameView is the render-friendly projection of types.ParsedName.
type ParsedNameView struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version"`
}

// SourceView is the render-friendly projection of types.Source.
type SourceView struct {
	GitRepoURL string `json:"git_repo_url,omitempty"`
	Rev        string `json:"rev,omitempty"`
}

// GraphStats is the aggregate view for `nixtract stats <graph>`.
type GraphStats struct {
	TotalDerivations       int            `json:"total_derivations"`
	TotalBuildInputEdges   int            `json:"total_build_input_edges"`
	UniqueOutputPaths      int            `json:"unique_output_paths"`
	UnbuildableEdges       int            `json:"unbuildable_edges"`
	BuildInputTypeCounts   map[string]int `json:"build_input_type_counts"`
	LicenseCounts          map[string]int `json:"license_counts,omitempty"`
	DerivationsWithSrc     int            `json:"derivations_with_src"`
	BrokenDerivationsCount int            `json:"broken_derivations_count"`
}

// ListDerivationsOptions filters `nixtract inspect <graph>` when no single
// attribute path is requested.
type ListDerivationsOptions struct {
	AttributePathPrefix string
	Limit               int
}

// ListDerivationItem is one row of `nixtract inspect <graph>` without
// `--attribute-path`.
type ListDerivationItem struct {
	AttributePath string `json:"attribute_path"`
	Name          string `json:"name"`
	OutputPath    string `json:"output_path,omitempty"`
}

// derivationView projects a types.Record into the render-friendly
// InspectDerivationResponse the CLI and TUI both consume.
func derivationView(r *types.Record) *InspectDerivationResponse {
	view := &InspectDerivationResponse{
		AttributePath:   r.AttributePath.String(),
		DerivationPath:  r.DerivationPath,
		OutputPath:      string(r.OutputPath),
		Name:            r.Name,
		BuildInputCount: len(r.BuildInputs),
	}
	if r.ParsedName != nil {
		view.ParsedName = &ParsedNameView{Name: r.ParsedName.Name, Version: r.ParsedName.Version}
	}
	if r.NixpkgsMetadata != nil {
		view.Homepage = r.NixpkgsMetadata.Homepage
		view.Broken = r.NixpkgsMetadata.Broken
		for _, l := range r.NixpkgsMetadata.Licenses {
			if l.SPDXID != "" {
				view.Licenses = append(view.Licenses, l.SPDXID)
			} else if l.FullName != "" {
				view.Licenses = append(view.Licenses, l.FullName)
			}
		}
	}
	if r.Src != nil {
		view.Src = &SourceView{GitRepoURL: r.Src.GitRepoURL, Rev: r.Src.Rev}
	}
	for _, edge := range r.BuildInputs {
		view.BuildInputs = append(view.BuildInputs, BuildInputView{
			AttributePath:  edge.AttributePath.String(),
			BuildInputType: string(edge.BuildInputType),
			OutputPath:     string(edge.OutputPath),
		})
	}
	return view
}
