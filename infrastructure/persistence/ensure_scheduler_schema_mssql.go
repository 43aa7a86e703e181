package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureSchedulerSchemaMSSQL creates the scheduled_posts table for SQL Server
// if it does not exist.
func EnsureSchedulerSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.scheduled_posts') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[scheduled_posts] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        owner_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(64) NOT NULL,
        payload NVARCHAR(MAX) NOT NULL,
        scheduled_time DATETIME2 NOT NULL,
        status NVARCHAR(32) NOT NULL DEFAULT 'pending',
        retries INT NOT NULL DEFAULT 0,
        last_error NVARCHAR(MAX) NULL,
        platform_post_id NVARCHAR(255) NULL,
        next_attempt_at DATETIME2 NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE INDEX IX_scheduled_posts_due ON dbo.[scheduled_posts](status, scheduled_time);
    CREATE INDEX IX_scheduled_posts_retry ON dbo.[scheduled_posts](status, next_attempt_at);
    CREATE INDEX IX_scheduled_posts_owner ON dbo.[scheduled_posts](owner_id);
END`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create scheduled_posts (mssql): %w", err)
	}

	usersDDL := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.users') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[users] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        name NVARCHAR(255) NOT NULL,
        user_name NVARCHAR(128) NOT NULL,
        password NVARCHAR(255) NOT NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_users_user_name ON dbo.[users](user_name);
END`
	if _, err := db.ExecContext(ctx, usersDDL); err != nil {
		return fmt.Errorf("create users (mssql): %w", err)
	}
	return nil
}
