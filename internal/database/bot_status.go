package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/trogers1052/satoshi-dashboard/internal/models"
)

// GetRecentBotStatuses returns up to limit stored snapshots, newest first.
func (db *DB) GetRecentBotStatuses(ctx context.Context, limit int) ([]models.BotStatusDocument, error) {
	query := `
		SELECT data, timestamp, type
		FROM bot_status
		ORDER BY timestamp COLLATE "C" DESC
		LIMIT $1
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot statuses: %w", err)
	}
	defer rows.Close()

	docs := make([]models.BotStatusDocument, 0, limit)
	for rows.Next() {
		var (
			data      []byte
			timestamp sql.NullString
			kind      sql.NullString
		)
		if err := rows.Scan(&data, &timestamp, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan bot status: %w", err)
		}
		docs = append(docs, models.BotStatusDocument{
			Data:      json.RawMessage(data),
			Timestamp: timestamp.String,
			Type:      kind.String,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bot statuses: %w", err)
	}
	return docs, nil
}

// InsertBotStatus stores one snapshot and returns its row id.
func (db *DB) InsertBotStatus(ctx context.Context, doc models.BotStatusDocument) (int64, error) {
	query := `
		INSERT INTO bot_status (data, timestamp, type)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	data := string(doc.Data)
	if data == "" {
		data = "{}"
	}

	var id int64
	err := db.conn.QueryRowContext(ctx, query, data, doc.Timestamp, doc.Type).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert bot status: %w", err)
	}
	return id, nil
}
