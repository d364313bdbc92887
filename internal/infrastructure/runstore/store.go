package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"
)

// RunStatus is the lifecycle state of a training run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one invocation of training or evaluation.
type Run struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Status     RunStatus       `json:"status"`
	Episodes   int             `json:"episodes"`
	Config     json.RawMessage `json:"config,omitempty"`
	ModelPath  string          `json:"modelPath,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
}

// EpisodeRecord is the outcome of one episode.
type EpisodeRecord struct {
	RunID            string    `json:"runId"`
	Episode          int       `json:"episode"`
	TotalReward      float64   `json:"totalReward"`
	Epsilon          float64   `json:"epsilon"`
	Steps            int       `json:"steps"`
	Dispatches       int       `json:"dispatches"`
	FailedDispatches int       `json:"failedDispatches"`
	AvgLoss          float64   `json:"avgLoss"`
	DurationMs       int64     `json:"durationMs"`
	RecordedAt       time.Time `json:"recordedAt"`
}

// CheckpointRecord points at a saved policy snapshot.
type CheckpointRecord struct {
	ID        string    `json:"id"`
	RunID     string    `json:"runId"`
	Episode   int       `json:"episode"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
}

// RunSummary aggregates the episode rewards of a run.
type RunSummary struct {
	Episodes    int     `json:"episodes"`
	MeanReward  float64 `json:"meanReward"`
	StdReward   float64 `json:"stdReward"`
	BestReward  float64 `json:"bestReward"`
	BestEpisode int     `json:"bestEpisode"`
	LastEpsilon float64 `json:"lastEpsilon"`
}

// Store persists runs through database/sql.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	driver Driver
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		episodes INTEGER NOT NULL DEFAULT 0,
		config_json TEXT,
		model_path TEXT,
		error TEXT,
		started_at BIGINT NOT NULL,
		finished_at BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS episodes (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		episode INTEGER NOT NULL,
		total_reward DOUBLE PRECISION NOT NULL,
		epsilon DOUBLE PRECISION NOT NULL,
		steps INTEGER NOT NULL,
		dispatches INTEGER NOT NULL DEFAULT 0,
		failed_dispatches INTEGER NOT NULL DEFAULT 0,
		avg_loss DOUBLE PRECISION NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		recorded_at BIGINT NOT NULL,
		PRIMARY KEY (run_id, episode)
	)`,
	`CREATE TABLE IF NOT EXISTS checkpoints (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		episode INTEGER NOT NULL,
		path TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_checkpoints_run ON checkpoints(run_id)`,
}

// Open connects to the configured database and creates the schema.
func Open(ctx context.Context, config Config) (*Store, error) {
	driverName, dsn, err := config.dataSource()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if Driver(driverName) == DriverSQLite {
		// Every pooled connection would get its own in-memory database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db, driver: Driver(driverName)}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

// CreateRun inserts a running run and returns it. config is stored as JSON.
func (s *Store) CreateRun(ctx context.Context, kind string, episodes int, config interface{}) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run config: %w", err)
	}

	run := &Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    RunStatusRunning,
		Episodes:  episodes,
		Config:    configJSON,
		StartedAt: time.Now(),
	}

	_, err = s.exec(ctx, `
		INSERT INTO runs (id, kind, status, episodes, config_json, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, string(run.Status), run.Episodes, string(configJSON), run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// RecordEpisode stores or replaces one episode result.
func (s *Store) RecordEpisode(ctx context.Context, rec EpisodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO episodes
		(run_id, episode, total_reward, epsilon, steps, dispatches, failed_dispatches, avg_loss, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, episode) DO UPDATE SET
			total_reward = excluded.total_reward,
			epsilon = excluded.epsilon,
			steps = excluded.steps,
			dispatches = excluded.dispatches,
			failed_dispatches = excluded.failed_dispatches,
			avg_loss = excluded.avg_loss,
			duration_ms = excluded.duration_ms,
			recorded_at = excluded.recorded_at`,
		rec.RunID, rec.Episode, rec.TotalReward, rec.Epsilon, rec.Steps, rec.Dispatches,
		rec.FailedDispatches, rec.AvgLoss, rec.DurationMs, rec.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record episode %d: %w", rec.Episode, err)
	}
	return nil
}

// RecordCheckpoint stores a checkpoint reference.
func (s *Store) RecordCheckpoint(ctx context.Context, rec CheckpointRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO checkpoints (id, run_id, episode, path, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.Episode, rec.Path, rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record checkpoint: %w", err)
	}
	return nil
}

// FinishRun marks a run as ended.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, modelPath string, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errMsg string
	if runErr != nil {
		errMsg = runErr.Error()
	}
	result, err := s.exec(ctx, `
		UPDATE runs SET status = ?, model_path = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		string(status), modelPath, errMsg, time.Now().UnixMilli(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `id, kind, status, episodes, config_json, model_path, error, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var status string
	var configJSON, modelPath, errMsg sql.NullString
	var startedAt int64
	var finishedAt sql.NullInt64

	if err := row.Scan(&run.ID, &run.Kind, &status, &run.Episodes, &configJSON, &modelPath, &errMsg, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if configJSON.Valid && configJSON.String != "" {
		run.Config = json.RawMessage(configJSON.String)
	}
	run.ModelPath = modelPath.String
	run.Error = errMsg.String
	run.StartedAt = time.UnixMilli(startedAt)
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64)
		run.FinishedAt = &t
	}
	return &run, nil
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrStoreClosed
	}
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+runColumns+` FROM runs WHERE id = ?`), runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrStoreClosed
	}
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Episodes returns a run's episodes in order.
func (s *Store) Episodes(ctx context.Context, runID string) ([]EpisodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT run_id, episode, total_reward, epsilon, steps, dispatches, failed_dispatches, avg_loss, duration_ms, recorded_at
		FROM episodes WHERE run_id = ? ORDER BY episode`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	records := make([]EpisodeRecord, 0)
	for rows.Next() {
		var rec EpisodeRecord
		var recordedAt int64
		if err := rows.Scan(&rec.RunID, &rec.Episode, &rec.TotalReward, &rec.Epsilon, &rec.Steps,
			&rec.Dispatches, &rec.FailedDispatches, &rec.AvgLoss, &rec.DurationMs, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		rec.RecordedAt = time.UnixMilli(recordedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Checkpoints returns a run's checkpoints in episode order.
func (s *Store) Checkpoints(ctx context.Context, runID string) ([]CheckpointRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, run_id, episode, path, created_at
		FROM checkpoints WHERE run_id = ? ORDER BY created_at, episode`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	records := make([]CheckpointRecord, 0)
	for rows.Next() {
		var rec CheckpointRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Episode, &rec.Path, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summarize computes reward statistics over episodes.
func Summarize(episodes []EpisodeRecord) RunSummary {
	summary := RunSummary{Episodes: len(episodes)}
	if len(episodes) == 0 {
		return summary
	}

	rewards := make([]float64, len(episodes))
	summary.BestReward = episodes[0].TotalReward
	summary.BestEpisode = episodes[0].Episode
	for i, ep := range episodes {
		rewards[i] = ep.TotalReward
		if ep.TotalReward > summary.BestReward {
			summary.BestReward = ep.TotalReward
			summary.BestEpisode = ep.Episode
		}
	}
	if len(rewards) > 1 {
		summary.MeanReward, summary.StdReward = stat.MeanStdDev(rewards, nil)
	} else {
		summary.MeanReward = rewards[0]
	}
	summary.LastEpsilon = episodes[len(episodes)-1].Epsilon
	return summary
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
