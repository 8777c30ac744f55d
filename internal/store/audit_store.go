package store

import "context"

type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Log(ctx context.Context, tx Execer, actorID, action, entityType, entityID, data string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, data)
		VALUES ($1, $2, $3, $4, $5)
	`, actorID, action, entityType, entityID, data)
	return err
}
