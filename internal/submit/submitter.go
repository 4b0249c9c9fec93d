// Package submit pushes classified transactions to the ledger, skipping the
// ones that already exist. The external id is the sole dedup key.
package submit

import (
	"context"
	"errors"
	"time"

	"github.com/fireflybt/fireflybt/internal/auditlog"
	"github.com/fireflybt/fireflybt/internal/firefly"
	"github.com/fireflybt/fireflybt/internal/logger"
	"github.com/fireflybt/fireflybt/internal/model"
)

// Status is the per-record result of a submission attempt.
type Status string

const (
	StatusCreated Status = "created"
	StatusExists  Status = "exists"
	StatusFailed  Status = "failed"
)

// Outcome reports what happened to one record.
type Outcome struct {
	ExternalID string `json:"external_id"`
	Status     Status `json:"status"`
	Detail     string `json:"detail,omitempty"`
	Err        error  `json:"-"`
}

// Submitter performs the query-then-create sequence against the ledger.
// The ledger does not enforce idempotency itself, so records must go
// through one Submitter sequentially; never submit the same external id
// concurrently.
type Submitter struct {
	ledger    firefly.Ledger
	auditRoot string
}

// NewSubmitter creates a Submitter. auditRoot is the directory holding the
// submission audit log; empty disables it.
func NewSubmitter(ledger firefly.Ledger, auditRoot string) *Submitter {
	return &Submitter{ledger: ledger, auditRoot: auditRoot}
}

// Submit processes a single record: check for an existing transaction with
// the same external id, create when absent. A duplicate is an expected,
// non-error outcome. Failures carry the rejected payload in the audit log.
func (s *Submitter) Submit(ctx context.Context, txn model.Transaction) Outcome {
	log := logger.FromContext(ctx)

	if err := txn.Validate(); err != nil {
		return s.failed(txn, err)
	}

	log.Info().Str("external_id", txn.ExternalID).Msg("checking if transaction exists")

	existing, err := s.ledger.FindTransactionByExternalID(ctx, txn.ExternalID)
	if err != nil {
		// Without a definite answer the create is skipped: submitting
		// blind could duplicate the transaction.
		log.Error().Err(err).Str("external_id", txn.ExternalID).Msg("existence check failed")
		return s.failed(txn, err)
	}

	if existing != nil {
		log.Info().Str("external_id", txn.ExternalID).Msg("transaction already exists")
		s.audit(auditlog.Entry{ExternalID: txn.ExternalID, Action: string(StatusExists)})
		return Outcome{ExternalID: txn.ExternalID, Status: StatusExists}
	}

	log.Info().Str("external_id", txn.ExternalID).Msg("inserting transaction")

	if err := s.ledger.CreateTransaction(ctx, txn); err != nil {
		payload := txn.ToStore()
		log.Error().
			Err(err).
			Str("external_id", txn.ExternalID).
			Interface("payload", payload).
			Msg("transaction rejected by the ledger")
		s.audit(auditlog.Entry{
			ExternalID: txn.ExternalID,
			Action:     string(StatusFailed),
			Detail:     err.Error(),
			Payload:    &payload,
		})
		return Outcome{ExternalID: txn.ExternalID, Status: StatusFailed, Detail: err.Error(), Err: err}
	}

	log.Info().Str("external_id", txn.ExternalID).Msg("transaction inserted")
	s.audit(auditlog.Entry{ExternalID: txn.ExternalID, Action: string(StatusCreated)})
	return Outcome{ExternalID: txn.ExternalID, Status: StatusCreated}
}

// SubmitAll processes records strictly in order. Submission failures are
// reported per record and do not stop the remaining ones; only context
// cancellation aborts the run.
func (s *Submitter) SubmitAll(ctx context.Context, txns []model.Transaction) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(txns))
	for _, txn := range txns {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, s.Submit(ctx, txn))
	}
	return outcomes, nil
}

func (s *Submitter) failed(txn model.Transaction, err error) Outcome {
	s.audit(auditlog.Entry{
		ExternalID: txn.ExternalID,
		Action:     string(StatusFailed),
		Detail:     err.Error(),
	})
	return Outcome{ExternalID: txn.ExternalID, Status: StatusFailed, Detail: err.Error(), Err: err}
}

func (s *Submitter) audit(entry auditlog.Entry) {
	if s.auditRoot == "" {
		return
	}
	entry.Timestamp = time.Now()
	// Audit failures must not fail the submission itself.
	_ = auditlog.Append(s.auditRoot, []auditlog.Entry{entry})
}

// IsSubmissionError reports whether an outcome failed because the ledger
// rejected the payload, as opposed to a transport or validation problem.
func IsSubmissionError(o Outcome) bool {
	var subErr *firefly.SubmissionError
	return o.Err != nil && errors.As(o.Err, &subErr)
}
