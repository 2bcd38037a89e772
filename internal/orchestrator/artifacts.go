package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"university-query-engine/internal/domain"
)

// artifactDownloadTTL is the presigned-URL lifetime named in §4.9a.
const artifactDownloadTTL = 3600 * time.Second

var previewableExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// attachArtifacts is S4.9a: for every distinct retrieved source document
// that carries artifacts, resolve a presigned download (and, when
// previewable, preview) URL for each one. Skips non-fillable artifacts
// entirely when the request wants a fillable form. Returns nil silently
// when no Presigner is wired, since artifact download is an enrichment,
// not a correctness requirement.
func (o *Orchestrator) attachArtifacts(ctx context.Context, retrievals []retrieval, wantsFillableForm bool) []domain.ArtifactRef {
	if o.Objects == nil {
		return nil
	}

	var refs []domain.ArtifactRef
	seen := map[string]bool{}
	for _, r := range retrievals {
		if r.Document == nil || seen[r.Document.ID] {
			continue
		}
		seen[r.Document.ID] = true

		for i, a := range r.Document.Artifacts {
			if wantsFillableForm && !a.IsFillable {
				continue
			}
			ref := domain.ArtifactRef{
				ArtifactID:   fmt.Sprintf("%s_artifact_%d", r.Document.ID, i),
				DocumentID:   r.Document.ID,
				FileName:     a.FileName,
				ArtifactType: a.Type,
				SizeBytes:    a.SizeBytes,
				IsFillable:   a.IsFillable,
				FillFields:   a.FillFields,
			}
			if url, err := o.Objects.Presign(ctx, a.StorageKey, artifactDownloadTTL); err == nil {
				ref.DownloadURL = url
			}
			if a.PreviewKey != "" && isPreviewable(a.FileName) {
				if url, err := o.Objects.Presign(ctx, a.PreviewKey, artifactDownloadTTL); err == nil {
					ref.PreviewURL = url
				}
			}
			refs = append(refs, ref)
		}
	}
	return refs
}

func isPreviewable(fileName string) bool {
	idx := strings.LastIndexByte(fileName, '.')
	if idx == -1 {
		return false
	}
	return previewableExtensions[strings.ToLower(fileName[idx:])]
}
