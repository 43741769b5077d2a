package domain

import "context"

// KeyPrefix namespaces every key topicdex writes to the cache store.
const KeyPrefix = "topicdex:"

// Inferencer maps free text to its topic representation under a trained model.
type Inferencer interface {
	Infer(ctx context.Context, model, text string) (Inference, error)
}

// HealthChecker verifies availability of an external collaborator.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Inference is the inferred topic representation of a text, already in
// encoded "t<idx>|weight" form.
type Inference struct {
	ID     string
	Thetas string
}

// WordBetaLookup returns the encoded weight of word in topic of model. A word
// absent from the topic yields zero.
type WordBetaLookup interface {
	WordBeta(ctx context.Context, model, topic, word string) (int, error)
}
