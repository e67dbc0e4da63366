// Package batch processes lists of items in fixed-size concurrent chunks.
//
// Items are split into chunks of Options.Concurrency. The items of a chunk
// run concurrently and the whole chunk is awaited before the next one starts,
// with Options.Delay between chunks to spread load on upstream providers.
// Results keep input order and a failing item never affects its neighbours.
//
// Example usage:
//
//	results := batch.Process(ctx, terms, func(ctx context.Context, term string) (enrichment.Record, error) {
//		return enricher.Enrich(ctx, term, enrichment.Context{})
//	}, batch.DefaultOptions())
//
//	for _, r := range results {
//		if !r.Success {
//			log.Warn().Err(r.Err).Str("term", r.Item).Msg("Enrichment failed")
//		}
//	}
package batch
