package store

import "context"

// AuditStore records operator-visible events (payment reconciliation
// outcomes, releases, proposal acceptance) alongside the mutation that
// produced them.
type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Log(ctx context.Context, tx Execer, actorID, action, entityType, entityID, data string) error {
	query := `
		INSERT INTO audit_log (actor_id, action, entity_type, entity_id, data)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.ExecContext(ctx, query, nullIfEmpty(actorID), action, entityType, entityID, data)
	return err
}

func nullIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
