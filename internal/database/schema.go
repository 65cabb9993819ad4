package database

import (
	"context"
	"database/sql"
)

// schema lists every table the service owns. Statements are idempotent
// so startup can run them unconditionally; real migrations would replace
// this once the schema starts evolving between releases.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'user',
		display_name  VARCHAR(255) NULL,
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NULL ON UPDATE CURRENT_TIMESTAMP,
		last_login_at DATETIME     NULL,
		UNIQUE KEY uq_users_email (email),
		KEY idx_users_role (role),
		KEY idx_users_is_active (is_active)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS demo_invites (
		id               CHAR(36)      NOT NULL PRIMARY KEY,
		code             VARCHAR(64)   NOT NULL,
		created_by       CHAR(36)      NOT NULL,
		credit_limit_usd DECIMAL(10,4) NOT NULL,
		max_messages     INT           NOT NULL,
		max_days         INT           NOT NULL,
		max_uses         INT           NOT NULL DEFAULT 1,
		used_count       INT           NOT NULL DEFAULT 0,
		active           TINYINT(1)    NOT NULL DEFAULT 1,
		expires_at       DATETIME      NOT NULL,
		created_at       DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_demo_invites_code (code),
		KEY idx_demo_invites_created_by (created_by)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS demo_users (
		user_id          CHAR(36)      NOT NULL PRIMARY KEY,
		invite_id        CHAR(36)      NOT NULL,
		email            VARCHAR(255)  NOT NULL,
		credit_limit_usd DECIMAL(10,4) NOT NULL,
		credit_used_usd  DECIMAL(10,4) NOT NULL DEFAULT 0,
		max_messages     INT           NOT NULL,
		messages_used    INT           NOT NULL DEFAULT 0,
		expires_at       DATETIME      NOT NULL,
		active           TINYINT(1)    NOT NULL DEFAULT 1,
		blocked          TINYINT(1)    NOT NULL DEFAULT 0,
		created_at       DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_demo_users_invite (invite_id),
		KEY idx_demo_users_expires (expires_at, active)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS chats (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		user_id    CHAR(36)     NOT NULL,
		title      VARCHAR(255) NOT NULL,
		agent_name VARCHAR(128) NOT NULL DEFAULT '',
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_chats_user (user_id, updated_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS chat_messages (
		id            CHAR(36)    NOT NULL PRIMARY KEY,
		chat_id       CHAR(36)    NOT NULL,
		role          VARCHAR(16) NOT NULL,
		content       MEDIUMTEXT  NOT NULL,
		agent_name    VARCHAR(128) NULL,
		input_tokens  INT         NULL,
		output_tokens INT         NULL,
		created_at    DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_chat_messages_chat (chat_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS cost_log (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id       CHAR(36)     NOT NULL,
		task_id       CHAR(36)     NOT NULL,
		model         VARCHAR(128) NOT NULL,
		provider      VARCHAR(32)  NOT NULL,
		input_tokens  INT          NOT NULL,
		output_tokens INT          NOT NULL,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_cost_log_user (user_id),
		KEY idx_cost_log_task (task_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_settings (
		user_id    CHAR(36) NOT NULL PRIMARY KEY,
		settings   JSON     NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS system_settings (
		setting_key VARCHAR(128) NOT NULL PRIMARY KEY,
		value       JSON         NOT NULL,
		description VARCHAR(512) NULL,
		updated_by  CHAR(36)     NULL,
		updated_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS settings_history (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		type         VARCHAR(8)   NOT NULL,
		reference_id VARCHAR(128) NOT NULL,
		old_value    JSON         NULL,
		new_value    JSON         NOT NULL,
		changed_by   CHAR(36)     NULL,
		changed_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_settings_history_ref (type, reference_id, changed_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// InitSchema creates all tables that do not exist yet.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
