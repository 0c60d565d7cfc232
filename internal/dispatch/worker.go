package dispatch

import (
	"sync"
	"time"

	"github.com/nerrad567/luxbridge/internal/mapping"
	"github.com/nerrad567/luxbridge/internal/sacn"
)

// State is the worker lifecycle state.
type State string

// Worker lifecycle states.
const (
	// StateStopped means no receiver is running.
	StateStopped State = "stopped"

	// StateRunning means frames are being received and dispatched.
	StateRunning State = "running"

	// StateRestarting is the transient state while the receiver is
	// being replaced after a mapping change.
	StateRestarting State = "restarting"
)

// joinTimeout bounds how long teardown waits for receiver goroutines.
// A stuck goroutine is logged and abandoned rather than wedging the
// whole bridge.
const joinTimeout = time.Second

// WorkerConfig contains the pieces a worker assembles on each start.
type WorkerConfig struct {
	// Store provides the mappings and therefore the universe set.
	Store *mapping.Store

	// Lights executes colour commands.
	Lights LightController

	// BindIP and Port configure the sACN receiver.
	BindIP string
	Port   int

	// Dispatch options applied to each new dispatcher.
	Fade      time.Duration
	Threshold int
	Metrics   MetricsSink
}

// Status is a point-in-time view of the worker.
type Status struct {
	State     State      `json:"state"`
	Universes []uint16   `json:"universes,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Receiver  sacn.Stats `json:"receiver"`
	Dispatch  Stats      `json:"dispatch"`
}

// Worker owns the receive-and-dispatch pipeline lifecycle.
//
// The pipeline (one sACN receiver plus one dispatcher) is built from
// the current mapping set on every start, so mapping mutations are
// applied by restarting it. RestartIfRunning does that without the
// caller having to care whether dispatch is active.
//
// Thread Safety:
//   - All methods are safe for concurrent use. The lock is never held
//     across receiver teardown or construction, so a slow join cannot
//     block Status calls.
type Worker struct {
	cfg    WorkerConfig
	logger Logger

	mu         sync.Mutex
	state      State
	receiver   *sacn.Receiver
	dispatcher *Dispatcher
	startedAt  time.Time
}

// NewWorker creates a stopped worker.
func NewWorker(cfg WorkerConfig, logger Logger) *Worker {
	return &Worker{
		cfg:    cfg,
		logger: logger,
		state:  StateStopped,
	}
}

// Start builds and starts the pipeline from the current mapping set.
//
// Returns:
//   - error: ErrAlreadyRunning, ErrNoMappings, or a receiver error
//     (any error leaves the worker stopped)
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateStopped {
		return ErrAlreadyRunning
	}

	receiver, dispatcher, err := w.build()
	if err != nil {
		w.state = StateStopped
		return err
	}

	w.receiver = receiver
	w.dispatcher = dispatcher
	w.state = StateRunning
	w.startedAt = time.Now()

	w.logger.Info("dispatch started", "universes", receiver.Universes())
	return nil
}

// Stop tears down the pipeline. No-op when already stopped.
func (w *Worker) Stop() {
	w.mu.Lock()
	receiver := w.receiver
	w.receiver = nil
	w.dispatcher = nil
	w.state = StateStopped
	w.mu.Unlock()

	if receiver != nil {
		w.join(receiver)
		w.logger.Info("dispatch stopped")
	}
}

// RestartIfRunning rebuilds the pipeline to pick up mapping changes.
// When the worker is stopped this does nothing: the next Start will
// see the new mappings anyway.
//
// The old receiver is torn down and the replacement built without
// holding the lock. If the worker was stopped or started by someone
// else in the meantime, the replacement is discarded quietly.
//
// Returns:
//   - error: If the replacement pipeline could not be built (the
//     worker is left stopped)
func (w *Worker) RestartIfRunning() error {
	w.mu.Lock()
	if w.state != StateRunning {
		w.mu.Unlock()
		return nil
	}
	old := w.receiver
	w.receiver = nil
	w.dispatcher = nil
	w.state = StateRestarting
	w.mu.Unlock()

	if old != nil {
		w.join(old)
	}

	receiver, dispatcher, err := w.build()
	if err != nil {
		w.mu.Lock()
		// Only claim the stopped state if nobody interleaved: a Stop
		// followed by a fresh Start during the build owns the state now.
		if w.state == StateRestarting && w.receiver == nil {
			w.state = StateStopped
		}
		w.mu.Unlock()
		w.logger.Warn("restart failed, dispatch stopped", "error", err)
		return err
	}

	w.mu.Lock()
	if w.state == StateRestarting && w.receiver == nil {
		w.receiver = receiver
		w.dispatcher = dispatcher
		w.state = StateRunning
		w.startedAt = time.Now()
		w.mu.Unlock()
		w.logger.Info("dispatch restarted", "universes", receiver.Universes())
		return nil
	}
	// Someone stopped or replaced the worker while we were building.
	w.mu.Unlock()
	receiver.Stop()
	return nil
}

// Status returns the current worker state and pipeline statistics.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Status{State: w.state}
	if w.receiver != nil {
		s.Universes = w.receiver.Universes()
		s.Receiver = w.receiver.Stats()
	}
	if w.dispatcher != nil {
		s.Dispatch = w.dispatcher.Stats()
	}
	if w.state == StateRunning {
		started := w.startedAt
		s.StartedAt = &started
	}
	return s
}

// build assembles a fresh pipeline from the current mapping set.
// Called without the lock held.
func (w *Worker) build() (*sacn.Receiver, *Dispatcher, error) {
	universes := w.cfg.Store.Universes()
	if len(universes) == 0 {
		return nil, nil, ErrNoMappings
	}

	dispatcher := NewDispatcher(w.cfg.Store, w.cfg.Lights, Options{
		Fade:      w.cfg.Fade,
		Threshold: w.cfg.Threshold,
		Metrics:   w.cfg.Metrics,
	}, w.logger)

	receiver := sacn.NewReceiver(w.cfg.BindIP, w.cfg.Port, universes, dispatcher.HandleFrame, w.logger)
	if err := receiver.Start(); err != nil {
		return nil, nil, err
	}
	return receiver, dispatcher, nil
}

// join stops a receiver with a bounded wait. Receiver goroutines exit
// within one read deadline; if one is wedged we log and move on rather
// than hang the caller.
func (w *Worker) join(receiver *sacn.Receiver) {
	done := make(chan struct{})
	go func() {
		receiver.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(joinTimeout):
		w.logger.Warn("receiver teardown exceeded join timeout, continuing")
	}
}
