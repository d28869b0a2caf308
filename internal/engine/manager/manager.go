package manager

import (
	"sync"
	"time"

	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/experiment"
	"github.com/networmix/ee500-wifi/internal/factory"
	"github.com/networmix/ee500-wifi/internal/model"
	_ "github.com/networmix/ee500-wifi/internal/writer" // Registers result writers
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TimestampLayout is the wall-clock format handed to writers.
const TimestampLayout = "2006-01-02_15-04-05"

// Manager feeds events to a run through a single worker and hands the
// final result to the configured writers.
type Manager struct {
	task    model.Task
	writers []model.Writer

	// Single worker: the statistics of a run are not locked.
	eventChannel chan model.Event
	workerWg     sync.WaitGroup

	stopOnce sync.Once
	result   *model.Result
	started  bool
	onResult []func(*model.Result)
}

// NewManager creates a manager for the run described by cfg, with writers
// built by the writer factory.
func NewManager(cfg *config.Config) (*Manager, error) {
	writers, err := factory.Create(cfg)
	if err != nil {
		return nil, err
	}
	return New(experiment.New(cfg), writers, cfg.Engine.EventBuffer), nil
}

// New creates a manager around an existing task.
func New(task model.Task, writers []model.Writer, buffer int) *Manager {
	return &Manager{
		task:         task,
		writers:      writers,
		eventChannel: make(chan model.Event, buffer),
	}
}

// AddWriter appends a writer. It must be called before Stop.
func (m *Manager) AddWriter(w model.Writer) {
	m.writers = append(m.writers, w)
}

// Writers returns the number of writers the result is handed to.
func (m *Manager) Writers() int {
	return len(m.writers)
}

// OnResult registers fn to be called with the final result, after the
// writers ran.
func (m *Manager) OnResult(fn func(*model.Result)) {
	m.onResult = append(m.onResult, fn)
}

// Start launches the event worker.
func (m *Manager) Start() {
	m.started = true
	m.workerWg.Add(1)
	go m.worker()
	zap.L().Info("manager started", zap.String("run", m.task.Name()), zap.Int("writers", len(m.writers)))
}

// Input returns the channel events are sent to.
func (m *Manager) Input() chan<- model.Event {
	return m.eventChannel
}

// Stop gracefully shuts down the manager and returns the run result.
// Calling Stop again returns the same result.
func (m *Manager) Stop() (*model.Result, error) {
	var err error
	m.stopOnce.Do(func() {
		zap.L().Info("manager stopping")
		// 1. Stop accepting new events.
		close(m.eventChannel)

		// 2. Wait for the worker to drain the buffered events.
		if m.started {
			m.workerWg.Wait()
		} else {
			m.drain()
		}

		// 3. Flatten and derive once.
		m.result = m.task.Snapshot()

		// 4. Hand the result to every writer; a failing writer does not stop the others.
		err = m.write(m.result)

		for _, fn := range m.onResult {
			fn(m.result)
		}
		zap.L().Info("manager stopped", zap.Int("values", m.result.Export.Len()))
	})
	return m.result, err
}

func (m *Manager) worker() {
	defer m.workerWg.Done()
	m.drain()
}

func (m *Manager) drain() {
	for ev := range m.eventChannel {
		m.task.ProcessEvent(ev)
	}
}

func (m *Manager) write(result *model.Result) error {
	timestamp := result.Timestamp.Format(TimestampLayout)
	if result.Timestamp.IsZero() {
		timestamp = time.Now().Format(TimestampLayout)
	}

	var failed int
	for _, w := range m.writers {
		if err := w.Write(result, timestamp); err != nil {
			failed++
			zap.L().Error("error writing result", zap.String("run", result.RunID), zap.Error(err))
		}
		if err := w.Close(); err != nil {
			zap.L().Warn("error closing writer", zap.Error(err))
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d writers failed", failed, len(m.writers))
	}
	return nil
}

var _ model.Engine = (*Manager)(nil)
