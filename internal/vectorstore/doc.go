// Package vectorstore stores policy passages as embeddings and answers
// similarity queries over them.
//
// Each policy gets its own collection inside an embedded chromem-go
// database. Passages are embedded in batch by the configured Embedder
// when they are added; queries can be issued either as text (embedded with
// EmbedQuery) or as a precomputed vector.
//
// # Usage
//
//	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{}, embedder, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	ids, err := store.AddDocuments(ctx, "policy_hx_2024", []vectorstore.Document{
//	    {Content: "Diabetes is covered after a waiting period of 2 years.", Metadata: map[string]interface{}{"page": 4}},
//	})
//
//	results, err := store.SearchByEmbedding(ctx, "policy_hx_2024", vec, 30)
//
// An empty ChromemConfig.Path keeps everything in memory, which is what the
// tests and the CLI's local mode use.
package vectorstore
