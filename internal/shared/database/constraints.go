package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the constraints that back booking consistency
func MigrateConstraints(db *gorm.DB) error {
	statements := []string{
		// A replayed Idempotency-Key must resolve to the first ticket
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_user_idempotency
		ON tickets (user_id, idempotency_key)
		WHERE idempotency_key IS NOT NULL`,

		`CREATE INDEX IF NOT EXISTS idx_tickets_event_user_type
		ON tickets (event_id, user_id, ticket_type)`,

		`DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_events_available_le_amount') THEN
				ALTER TABLE events ADD CONSTRAINT chk_events_available_le_amount
				CHECK (available_seats <= seats_amount);
			END IF;
		END $$`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
