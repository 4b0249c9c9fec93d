package firefly

import (
	"fmt"

	"github.com/fireflybt/fireflybt/internal/model"
)

// SubmissionError is a transaction creation the ledger rejected. It carries
// the rejected payload and the remote response body for diagnosis.
type SubmissionError struct {
	ExternalID string
	StatusCode int
	Body       string
	Payload    model.StoreRequest
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("firefly rejected transaction %s: status %d: %s", e.ExternalID, e.StatusCode, e.Body)
}
