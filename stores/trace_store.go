package stores

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Trace statuses.
const (
	TraceStatusOK    = "ok"
	TraceStatusError = "error"
)

// ExecutionTrace records one tool call made during an agent run.
// Indexed by run_id and tool_call_id for retrieval.
type ExecutionTrace struct {
	ID         uint                   `gorm:"primarykey" json:"-"`
	CreatedAt  time.Time              `json:"-"`
	RunID      string                 `gorm:"index:idx_trace_run;not null" json:"run_id"`
	ToolCallID string                 `gorm:"index:idx_trace_tool" json:"tool_call_id"`
	TraceID    string                 `gorm:"not null" json:"trace_id"`
	Round      int                    `json:"round"`
	Tool       string                 `gorm:"not null" json:"tool"`
	Status     string                 `gorm:"not null" json:"status"` // ok, error
	Error      string                 `gorm:"type:text" json:"error,omitempty"`
	ArgsJSON   string                 `gorm:"type:text" json:"-"`
	Args       map[string]interface{} `gorm:"-" json:"args,omitempty"`
	ResultJSON string                 `gorm:"type:text" json:"-"`
	Result     json.RawMessage        `gorm:"-" json:"result,omitempty"`
	Timestamp  int64                  `gorm:"not null;index:idx_trace_run" json:"timestamp"`
	DurationMS int64                  `json:"duration_ms"`
}

// BeforeSave marshals Args to ArgsJSON and copies Result into ResultJSON.
func (t *ExecutionTrace) BeforeSave(tx *gorm.DB) error {
	if t.Args != nil {
		data, err := json.Marshal(t.Args)
		if err != nil {
			return err
		}
		t.ArgsJSON = string(data)
	}
	if len(t.Result) > 0 {
		t.ResultJSON = string(t.Result)
	}
	return nil
}

// AfterFind restores Args and Result from their stored JSON.
func (t *ExecutionTrace) AfterFind(tx *gorm.DB) error {
	if t.ArgsJSON != "" {
		if err := json.Unmarshal([]byte(t.ArgsJSON), &t.Args); err != nil {
			return err
		}
	}
	if t.ResultJSON != "" {
		t.Result = json.RawMessage(t.ResultJSON)
	}
	return nil
}

// TraceStore persists agent run traces.
type TraceStore interface {
	SaveTrace(trace *ExecutionTrace) error

	// SaveTraces saves multiple traces in a batch
	SaveTraces(traces []*ExecutionTrace) error

	// TracesByRun returns a run's traces in call order
	TracesByRun(runID string) ([]*ExecutionTrace, error)

	TracesByToolCall(toolCallID string) ([]*ExecutionTrace, error)

	DeleteRun(runID string) error

	Close() error
}

// GORMTraceStore implements TraceStore on SQLite or PostgreSQL via GORM.
type GORMTraceStore struct {
	db *gorm.DB
}

// NewGORMTraceStore creates a trace store from an existing GORM connection
// and migrates the traces table.
func NewGORMTraceStore(db *gorm.DB) (*GORMTraceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if err := db.AutoMigrate(&ExecutionTrace{}); err != nil {
		return nil, fmt.Errorf("failed to migrate execution_traces table: %w", err)
	}
	return &GORMTraceStore{db: db}, nil
}

func (s *GORMTraceStore) SaveTrace(trace *ExecutionTrace) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Create(trace).Error
}

func (s *GORMTraceStore) SaveTraces(traces []*ExecutionTrace) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if len(traces) == 0 {
		return nil
	}
	return s.db.CreateInBatches(traces, 100).Error
}

func (s *GORMTraceStore) TracesByRun(runID string) ([]*ExecutionTrace, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var traces []*ExecutionTrace
	err := s.db.Where("run_id = ?", runID).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&traces).Error

	return traces, err
}

func (s *GORMTraceStore) TracesByToolCall(toolCallID string) ([]*ExecutionTrace, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var traces []*ExecutionTrace
	err := s.db.Where("tool_call_id = ?", toolCallID).
		Order("id ASC").
		Find(&traces).Error

	return traces, err
}

func (s *GORMTraceStore) DeleteRun(runID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Where("run_id = ?", runID).Delete(&ExecutionTrace{}).Error
}

// Close closes the underlying database connection.
func (s *GORMTraceStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection is alive.
func (s *GORMTraceStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
