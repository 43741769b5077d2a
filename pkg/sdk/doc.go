// Package topicdex embeds the topicdex topic-model index in a Go program.
//
// The client wires the same services as the HTTP server against a Solr
// cluster: corpus and model indexing, the registry guard, the query
// templates, reconciliation and, optionally, the word-beta cache and the
// topic inference service.
//
//	client, _ := topicdex.New(ctx,
//	    topicdex.WithSolr("http://localhost:8983"),
//	    topicdex.WithInferencer("http://localhost:90"),
//	)
//	defer client.Close()
//
//	_, _ = client.Corpora().Index(ctx, "/data/source/cordis.parquet")
//	_, _ = client.Models().Index(ctx, "/data/source/cordis_mallet-10")
//	res, _ := client.Queries().Run(ctx, "getDocsSimilarToFreeText", map[string]string{
//	    "corpus_collection": "cordis",
//	    "model_name":        "cordis_mallet-10",
//	    "text_to_infer":     "offshore wind turbines",
//	})
package topicdex
