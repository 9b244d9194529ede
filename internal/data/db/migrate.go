package db

import (
	"fmt"

	"gorm.io/gorm"

	authtypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/auth"
	chattypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/chat"
	usertypes "github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/user"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity + auth
		&usertypes.User{},
		&authtypes.UserToken{},

		// Chat
		&chattypes.ChatSession{},
		&chattypes.ChatMessage{},
	)
}

// EnsureChatConstraints adds the FKs that AutoMigrate skips because
// DisableForeignKeyConstraintWhenMigrating is on. Session deletion cascades
// to its messages at the database level.
func EnsureChatConstraints(db *gorm.DB) error {
	if err := db.Exec(`
		DO $$ BEGIN
			ALTER TABLE chat_session
				ADD CONSTRAINT fk_chat_session_user
				FOREIGN KEY (user_id) REFERENCES "user"(id) ON DELETE CASCADE;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$;
	`).Error; err != nil {
		return fmt.Errorf("create fk_chat_session_user: %w", err)
	}

	if err := db.Exec(`
		DO $$ BEGIN
			ALTER TABLE chat_message
				ADD CONSTRAINT fk_chat_message_session
				FOREIGN KEY (session_id) REFERENCES chat_session(id) ON DELETE CASCADE;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$;
	`).Error; err != nil {
		return fmt.Errorf("create fk_chat_message_session: %w", err)
	}

	if err := db.Exec(`
		DO $$ BEGIN
			ALTER TABLE user_token
				ADD CONSTRAINT fk_user_token_user
				FOREIGN KEY (user_id) REFERENCES "user"(id) ON DELETE CASCADE;
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$;
	`).Error; err != nil {
		return fmt.Errorf("create fk_user_token_user: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chat_message_session_backlog
		ON chat_message (session_id, seq)
		WHERE is_summarized = false AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_chat_message_session_backlog: %w", err)
	}

	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureChatConstraints(s.db); err != nil {
		s.log.Error("Chat constraint migration failed", "error", err)
		return err
	}
	return nil
}
