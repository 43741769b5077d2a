package topicdex

import (
	"context"
	"fmt"
	"time"
)

// SchemaService compares the registry with the corpus schemas.
type SchemaService struct {
	svc schemaUseCase
	obs *observer
}

// Reconcile reports every registry/schema disagreement. With repair, each
// issue is resolved by detaching the affected model.
func (s *SchemaService) Reconcile(ctx context.Context, repair bool) (_ ReconcileReport, err error) {
	start := time.Now()
	defer func() { s.obs.observe("schema.reconcile", start, err, "repair", repair) }()

	rep, err := s.svc.Reconcile(ctx, repair)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("reconcile: %w", err)
	}
	return fromInternalReport(rep), nil
}

// State returns the attachment state of model on corpus.
func (s *SchemaService) State(ctx context.Context, corpus, model string) (_ AttachmentState, err error) {
	start := time.Now()
	defer func() { s.obs.observe("schema.state", start, err, "corpus", corpus, "model", model) }()

	st, err := s.svc.State(ctx, corpus, model)
	if err != nil {
		return AttachmentState{}, fmt.Errorf("attachment state: %w", err)
	}
	return fromInternalStatus(st), nil
}
