package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"genset-bridge/pkg/logger"

	_ "modernc.org/sqlite"
)

// Event is a single journalled operational event: a connectivity
// transition, a command dispatch or an alarm set change.
type Event struct {
	Timestamp time.Time
	Category  string
	Message   string
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    category TEXT NOT NULL,
    message TEXT NOT NULL
);`

// Journal persists operational events to a SQLite file. Record never blocks
// the caller: events flow through a buffered channel into a single writer
// goroutine, and when the buffer is full the event is dropped with a warning.
type Journal struct {
	db     *sql.DB
	events chan Event
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// OpenJournal opens (or creates) the journal database and starts the
// writer goroutine.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening journal database %s: %w", path, err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating journal schema in %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Journal{
		db:     db,
		events: make(chan Event, 256),
		cancel: cancel,
	}

	j.wg.Add(1)
	go j.writer(ctx)

	logger.LogInfo("📔 Event journal opened: %s", path)
	return j, nil
}

// Record queues an event for persistence. Safe for concurrent use and
// never blocks; drops the event if the writer is behind.
func (j *Journal) Record(category, message string) {
	ev := Event{Timestamp: time.Now(), Category: category, Message: message}
	select {
	case j.events <- ev:
	default:
		logger.LogWarn("⚠️ Journal buffer full, dropping event: %s %s", category, message)
	}
}

// Close drains pending events and closes the database
func (j *Journal) Close() error {
	j.cancel()
	j.wg.Wait()
	return j.db.Close()
}

// writer is the single goroutine that owns database writes
func (j *Journal) writer(ctx context.Context) {
	defer j.wg.Done()
	logger.LogDebug("📔 Journal writer started")

	for {
		select {
		case ev := <-j.events:
			j.writeEvent(ev)
		case <-ctx.Done():
			// Drain whatever is already buffered before shutting down
			for {
				select {
				case ev := <-j.events:
					j.writeEvent(ev)
				default:
					logger.LogDebug("📔 Journal writer stopped")
					return
				}
			}
		}
	}
}

func (j *Journal) writeEvent(ev Event) {
	_, err := j.db.Exec(
		"INSERT INTO events(timestamp, category, message) VALUES(?, ?, ?)",
		ev.Timestamp.Format("2006-01-02 15:04:05.000"), ev.Category, ev.Message,
	)
	if err != nil {
		logger.LogError("❌ Failed to insert journal event: %v", err)
	}
}

// RecentEvents returns up to limit most recent events, newest first.
// Used by the diagnostic mode report.
func (j *Journal) RecentEvents(limit int) ([]Event, error) {
	rows, err := j.db.Query(
		"SELECT timestamp, category, message FROM events ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("error querying journal events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var ts string
		if err := rows.Scan(&ts, &ev.Category, &ev.Message); err != nil {
			return nil, fmt.Errorf("error scanning journal event: %w", err)
		}
		ev.Timestamp, _ = time.Parse("2006-01-02 15:04:05.000", ts)
		events = append(events, ev)
	}
	return events, rows.Err()
}
