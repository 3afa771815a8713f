// Package reports is the Report Artifacts Surface (C11): a read-only
// aggregation over the tenant artifact store's report/memo/checkpoint
// prefixes plus a small relational tail, for report composition. It
// is never a source of truth — every artifact it lists still lives
// under its own C1 prefix or C2 table.
package reports

import (
	"context"
	"sort"
	"strings"

	"github.com/qualcode/nucleus/pkg/relstore"
	"github.com/qualcode/nucleus/pkg/tenantstore"
)

const (
	maxPreviewBytes = 350 * 1024
	maxListed       = 200
)

// Kind classifies one listed artifact by its logical-path prefix.
type Kind string

const (
	KindReport           Kind = "report"
	KindRunnerMemo       Kind = "runner_memo"
	KindRunnerReport     Kind = "runner_report"
	KindRunnerCheckpoint Kind = "runner_checkpoint"
)

// Artifact is one entry in the recent-artifacts index.
type Artifact struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"` // blob key, already tenant-prefixed
}

// Surface queries C1 (prefix-scan) and C2 (relational tail) for one
// project's reporting surface.
type Surface struct {
	artifacts *tenantstore.Store
	rel       *relstore.Store
}

// New builds a Surface over already-constructed store clients.
func New(artifacts *tenantstore.Store, rel *relstore.Store) *Surface {
	return &Surface{artifacts: artifacts, rel: rel}
}

var prefixesByKind = map[Kind]string{
	KindReport:           "reports/",
	KindRunnerMemo:       "notes/runner_semantic/",
	KindRunnerReport:     "reports/runner/",
	KindRunnerCheckpoint: "logs/runner_checkpoints/",
}

// ListArtifacts scans every known artifact prefix under the project's
// tenant root and returns up to maxListed entries sorted by blob name,
// descending, which groups them by prefix. Only runner memo names
// begin with a timestamp, so only memos come out most recent first;
// checkpoints and runner reports are ordered by task id.
func (s *Surface) ListArtifacts(ctx context.Context, org, project string) ([]Artifact, error) {
	root := tenantstore.ProjectPrefix(org, project)

	var out []Artifact
	for kind, suffix := range prefixesByKind {
		names, err := s.artifacts.List(ctx, root+suffix, maxListed)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			out = append(out, Artifact{Kind: kind, Name: n})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	if len(out) > maxListed {
		out = out[:maxListed]
	}
	return out, nil
}

// Preview reads an artifact's content, truncated to maxPreviewBytes —
// callers composing a report never need the full checkpoint blob,
// only enough to summarize it.
func (s *Surface) Preview(ctx context.Context, blobName string) ([]byte, bool, error) {
	data, err := s.artifacts.Get(ctx, blobName)
	if err != nil {
		return nil, false, err
	}
	if len(data) > maxPreviewBytes {
		return data[:maxPreviewBytes], true, nil
	}
	return data, false, nil
}

// InterviewReportTail returns a small tail of per-interview summary
// rows from the relational store, for callers that want a structured
// complement to the artifact listing rather than raw blobs.
func (s *Surface) InterviewReportTail(ctx context.Context, project string, limit int) ([]relstore.ArchivoSummary, error) {
	summaries, err := s.rel.ListArchivoSummaries(ctx, project, relstore.OrderIngestDesc)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// FilterByArchivo keeps only artifacts whose name embeds the given
// archivo slug — runner memo filenames encode it, per §6's naming
// contract, as notes/runner_semantic/<ts>_semantic_runner_<slug>_...
func FilterByArchivo(artifacts []Artifact, archivoSlug string) []Artifact {
	if archivoSlug == "" {
		return artifacts
	}
	out := make([]Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if strings.Contains(a.Name, archivoSlug) {
			out = append(out, a)
		}
	}
	return out
}
