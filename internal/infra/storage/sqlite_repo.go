package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MRamiBalles/CrewAging/server/internal/events"
	"github.com/MRamiBalles/CrewAging/server/internal/savetree"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// rebind rewrites ? placeholders for the dialect.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLEventRepository implements EventRepository for SQLite and PostgreSQL.
type SQLEventRepository struct {
	db      *sql.DB
	dialect dialect
}

func NewSQLiteEventRepository(db *sql.DB) *SQLEventRepository {
	return &SQLEventRepository{db: db, dialect: dialectSQLite}
}

func (r *SQLEventRepository) Append(ctx context.Context, slot string, event events.LifecycleEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, slot, timestamp, event_type, actor_id, crew_name, ut, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, r.dialect.rebind(query),
		event.ID, slot, event.Timestamp.UnixMilli(), string(event.Type), event.ActorID,
		event.CrewName, event.UT, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const selectEvents = `SELECT id, timestamp, event_type, actor_id, crew_name, ut, payload FROM events`

func (r *SQLEventRepository) GetBySlot(ctx context.Context, slot string) ([]events.LifecycleEvent, error) {
	return r.getMany(ctx, selectEvents+` WHERE slot = ? ORDER BY seq ASC`, slot)
}

func (r *SQLEventRepository) GetByCrew(ctx context.Context, slot, crewName string) ([]events.LifecycleEvent, error) {
	return r.getMany(ctx, selectEvents+` WHERE slot = ? AND crew_name = ? ORDER BY seq ASC`, slot, crewName)
}

func (r *SQLEventRepository) GetByEventType(ctx context.Context, slot string, eventType events.EventType) ([]events.LifecycleEvent, error) {
	return r.getMany(ctx, selectEvents+` WHERE slot = ? AND event_type = ? ORDER BY seq ASC`, slot, string(eventType))
}

// getMany scans events. Payloads come back as raw JSON.
func (r *SQLEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]events.LifecycleEvent, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []events.LifecycleEvent
	for rows.Next() {
		var (
			e          events.LifecycleEvent
			millis     int64
			eventType  string
			payloadStr string
		)
		err := rows.Scan(&e.ID, &millis, &eventType, &e.ActorID, &e.CrewName, &e.UT, &payloadStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp = time.UnixMilli(millis)
		e.Type = events.EventType(eventType)
		if payloadStr != "null" {
			e.Payload = json.RawMessage(payloadStr)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SQLSaveRepository implements SaveRepository. Trees are stored as JSON.
type SQLSaveRepository struct {
	db      *sql.DB
	dialect dialect
}

func NewSQLiteSaveRepository(db *sql.DB) *SQLSaveRepository {
	return &SQLSaveRepository{db: db, dialect: dialectSQLite}
}

func (r *SQLSaveRepository) SaveTree(ctx context.Context, slot string, ut float64, tree *savetree.Node) error {
	data, err := savetree.EncodeJSON(tree)
	if err != nil {
		return fmt.Errorf("failed to encode save tree: %w", err)
	}

	query := `
		INSERT INTO save_slots (slot, tree, ut, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET tree = excluded.tree, ut = excluded.ut, saved_at = excluded.saved_at
	`
	_, err = r.db.ExecContext(ctx, r.dialect.rebind(query), slot, string(data), ut, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save slot %s: %w", slot, err)
	}
	return nil
}

func (r *SQLSaveRepository) LoadTree(ctx context.Context, slot string) (*savetree.Node, error) {
	var data string
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(`SELECT tree FROM save_slots WHERE slot = ?`), slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("slot %s: %w", slot, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load slot %s: %w", slot, err)
	}

	tree, err := savetree.DecodeJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode slot %s: %w", slot, err)
	}
	return tree, nil
}

func (r *SQLSaveRepository) ListSlots(ctx context.Context) ([]SlotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT slot, ut, saved_at FROM save_slots ORDER BY saved_at DESC, slot ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var out []SlotInfo
	for rows.Next() {
		var (
			info   SlotInfo
			millis int64
		)
		if err := rows.Scan(&info.Slot, &info.UT, &millis); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		info.SavedAt = time.UnixMilli(millis)
		out = append(out, info)
	}
	return out, rows.Err()
}

var (
	_ EventRepository = (*SQLEventRepository)(nil)
	_ SaveRepository  = (*SQLSaveRepository)(nil)
)
