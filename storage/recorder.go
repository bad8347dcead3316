// Package storage records timestamped sample sessions in a SQLite database.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/imu/mpu9250"
	"github.com/mklimuk/imu/sampler"
)

//go:embed schema.sql
var schemaSQL string

const (
	insertSessionSQL = `
INSERT INTO sessions (start_time, device, config)
VALUES (?, ?, ?)`

	selectSessionsSQL = `
SELECT id, start_time, device, config
FROM sessions
ORDER BY id`

	insertSampleSQL = `
INSERT INTO samples (session_id, timestamp, ax, ay, az, mx, my, mz)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectSamplesSQL = `
SELECT timestamp, ax, ay, az, mx, my, mz
FROM samples
WHERE session_id = ?
ORDER BY timestamp`
)

var ErrNoSession = errors.New("storage: no active session")

type Session struct {
	ID        int64
	StartTime time.Time
	Device    string
	// Config is the YAML encoded configuration the session was recorded with.
	Config string
}

// Recorder is a sampler.Sink writing into the session created last.
type Recorder struct {
	db  *sql.DB
	now func() time.Time

	mu      sync.Mutex
	session int64
	insert  *sql.Stmt
}

func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", path))
	if err != nil {
		return nil, fmt.Errorf("storage: opening database: %w", err)
	}
	if _, err = db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: initializing schema: %w", err)
	}
	return &Recorder{db: db, now: time.Now}, nil
}

// CreateSession starts a new session and makes it the target of Write.
func (r *Recorder) CreateSession(ctx context.Context, device string, config any) (int64, error) {
	var configData sql.NullString
	switch c := config.(type) {
	case nil:
	case string:
		configData = sql.NullString{String: c, Valid: true}
	default:
		p, err := yaml.Marshal(c)
		if err != nil {
			return 0, fmt.Errorf("storage: marshaling config: %w", err)
		}
		configData = sql.NullString{String: string(p), Valid: true}
	}
	result, err := r.db.ExecContext(ctx, insertSessionSQL, r.now().UnixMilli(), device, configData)
	if err != nil {
		return 0, fmt.Errorf("storage: inserting session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: getting session ID: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = id
	return id, nil
}

func (r *Recorder) Write(ctx context.Context, s sampler.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == 0 {
		return ErrNoSession
	}
	if r.insert == nil {
		stmt, err := r.db.PrepareContext(ctx, insertSampleSQL)
		if err != nil {
			return fmt.Errorf("storage: preparing statement: %w", err)
		}
		r.insert = stmt
	}
	a, m := s.Acceleration, s.MagneticField
	_, err := r.insert.ExecContext(ctx, r.session, s.Time.UnixMilli(), a.X, a.Y, a.Z, m.X, m.Y, m.Z)
	if err != nil {
		return fmt.Errorf("storage: inserting sample: %w", err)
	}
	return nil
}

func (r *Recorder) Sessions(ctx context.Context) (sessions []Session, err error) {
	rows, err := r.db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("storage: querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)
	for rows.Next() {
		var s Session
		var start int64
		var config sql.NullString
		if err = rows.Scan(&s.ID, &start, &s.Device, &config); err != nil {
			return nil, fmt.Errorf("storage: scanning session: %w", err)
		}
		s.StartTime = time.UnixMilli(start)
		s.Config = config.String
		sessions = append(sessions, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterating sessions: %w", err)
	}
	return sessions, nil
}

// Samples calls fn for every sample of the session in time order. Iteration
// stops at the first error returned by fn.
func (r *Recorder) Samples(ctx context.Context, sessionID int64, fn func(sampler.Sample) error) (err error) {
	rows, err := r.db.QueryContext(ctx, selectSamplesSQL, sessionID)
	if err != nil {
		return fmt.Errorf("storage: querying samples: %w", err)
	}
	defer closeWithError(rows, &err)
	for rows.Next() {
		var ts int64
		var a mpu9250.Acceleration
		var m mpu9250.MagneticField
		if err = rows.Scan(&ts, &a.X, &a.Y, &a.Z, &m.X, &m.Y, &m.Z); err != nil {
			return fmt.Errorf("storage: scanning sample: %w", err)
		}
		if err = fn(sampler.Sample{Time: time.UnixMilli(ts), Acceleration: a, MagneticField: m}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	if r.insert != nil {
		errs = append(errs, r.insert.Close())
		r.insert = nil
	}
	errs = append(errs, r.db.Close())
	return errors.Join(errs...)
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
