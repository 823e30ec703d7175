package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hipstersmoothie/social-app/internal/chat"
)

// ConvoRepo stores the flattened conversation list per account. Rows mirror
// the last fetched snapshot; position preserves server order.
type ConvoRepo struct {
	db *sql.DB
}

func NewConvoRepo(db *sql.DB) *ConvoRepo {
	return &ConvoRepo{db: db}
}

func (r *ConvoRepo) ReplaceAccount(ctx context.Context, accountDID string, convos []*chat.ConvoSummary) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace convos tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM convos WHERE account_did = ?`, accountDID); err != nil {
		return fmt.Errorf("delete account convos: %w", err)
	}

	now := toUnixMillis(time.Now())
	for position, convo := range convos {
		membersJSON, err := json.Marshal(convo.Members)
		if err != nil {
			return fmt.Errorf("encode convo members: %w", err)
		}
		var lastMessageJSON string
		if convo.LastMessage != nil {
			encoded, err := json.Marshal(convo.LastMessage)
			if err != nil {
				return fmt.Errorf("encode convo last message: %w", err)
			}
			lastMessageJSON = string(encoded)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO convos(account_did, convo_id, rev, unread_count, muted, members_json, last_message_json, position, updated_at)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, accountDID, convo.ID, convo.Rev, convo.UnreadCount, convo.Muted, string(membersJSON), nullableString(lastMessageJSON), position, now); err != nil {
			return fmt.Errorf("insert convo: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace convos tx: %w", err)
	}

	return nil
}

func (r *ConvoRepo) ListByAccount(ctx context.Context, accountDID string) ([]*chat.ConvoSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT convo_id, rev, unread_count, muted, members_json, last_message_json
		FROM convos
		WHERE account_did = ?
		ORDER BY position
	`, accountDID)
	if err != nil {
		return nil, fmt.Errorf("list account convos: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := make([]*chat.ConvoSummary, 0)
	for rows.Next() {
		convo, err := scanConvo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, convo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate convos: %w", err)
	}

	return out, nil
}

func (r *ConvoRepo) Accounts(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT account_did
		FROM convos
		ORDER BY account_did
	`)
	if err != nil {
		return nil, fmt.Errorf("list cached accounts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []string
	for rows.Next() {
		var did string
		if err := rows.Scan(&did); err != nil {
			return nil, fmt.Errorf("scan account did: %w", err)
		}
		out = append(out, did)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return out, nil
}

func (r *ConvoRepo) DeleteAccount(ctx context.Context, accountDID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM convos WHERE account_did = ?`, accountDID); err != nil {
		return fmt.Errorf("delete account convos: %w", err)
	}

	return nil
}

func scanConvo(scanner interface {
	Scan(dest ...any) error
}) (*chat.ConvoSummary, error) {
	var (
		convo          chat.ConvoSummary
		membersRaw     string
		lastMessageRaw sql.NullString
	)
	if err := scanner.Scan(&convo.ID, &convo.Rev, &convo.UnreadCount, &convo.Muted, &membersRaw, &lastMessageRaw); err != nil {
		return nil, fmt.Errorf("scan convo: %w", err)
	}
	if err := json.Unmarshal([]byte(membersRaw), &convo.Members); err != nil {
		return nil, fmt.Errorf("decode convo members: %w", err)
	}
	if lastMessageRaw.Valid {
		var last chat.LastMessage
		if err := json.Unmarshal([]byte(lastMessageRaw.String), &last); err != nil {
			return nil, fmt.Errorf("decode convo last message: %w", err)
		}
		convo.LastMessage = &last
	}

	return &convo, nil
}
