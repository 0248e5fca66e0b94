package shared

import "time"

// AuditStamp records who created and last touched a document.
type AuditStamp struct {
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedBy string    `json:"modified_by"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Stamp applies the actor to the audit trail, setting creation fields once.
func (s *AuditStamp) Stamp(actor string, now time.Time) {
	if s.CreatedAt.IsZero() {
		s.CreatedBy = actor
		s.CreatedAt = now
	}
	s.ModifiedBy = actor
	s.ModifiedAt = now
}
