package reconcile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dkovalev/assetvault/internal/client/models"
)

// DefaultBatchLimit bounds concurrent reconciliations in a bulk run so a
// large folder does not overwhelm the server or the local hasher pool.
const DefaultBatchLimit = 4

// BatchResult pairs one candidate with its outcome or failure. A failed
// candidate never aborts the rest of the batch.
type BatchResult struct {
	Candidate *models.AssetCandidate
	Outcome   *Outcome
	Err       error
}

// ReconcileAll reconciles every candidate against providerID, at most
// limit at a time (limit < 1 means DefaultBatchLimit). Results are
// positionally aligned with candidates. Cancelling ctx stops scheduling
// new work; candidates never started report ctx.Err().
func (r *Reconciler) ReconcileAll(ctx context.Context, candidates []*models.AssetCandidate, providerID string, limit int) []BatchResult {
	if limit < 1 {
		limit = DefaultBatchLimit
	}

	results := make([]BatchResult, len(candidates))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, cand := range candidates {
		results[i].Candidate = cand

		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		g.Go(func() error {
			out, err := r.Reconcile(ctx, cand, providerID)
			results[i].Outcome = out
			results[i].Err = err
			// Individual failures stay individual.
			return nil
		})
	}

	_ = g.Wait()
	return results
}
