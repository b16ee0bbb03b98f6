package saga

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultHistorySize bounds how many finished instances the manager remembers
const DefaultHistorySize = 256

// Manager registers saga definitions and executes them
type Manager struct {
	logger      *zap.Logger
	instances   map[SagaID]*SagaInstance
	finished    []SagaID
	historySize int
	definitions map[string]SagaDefinition
	eventChan   chan SagaEvent
	mu          sync.RWMutex
}

// NewManager creates a new saga manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:      logger,
		instances:   make(map[SagaID]*SagaInstance),
		historySize: DefaultHistorySize,
		definitions: make(map[string]SagaDefinition),
		eventChan:   make(chan SagaEvent, 100),
	}
}

// RegisterDefinition registers a saga definition
func (m *Manager) RegisterDefinition(def SagaDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitions[def.ID()] = def
	m.logger.Info("Saga definition registered", zap.String("id", def.ID()))
}

// Run executes a saga to completion on the calling goroutine. On failure the
// completed steps are compensated and the failing step's error is returned
// along with the compensated instance.
func (m *Manager) Run(ctx context.Context, definitionID string, data SagaData) (*SagaInstance, error) {
	sagaID, def, err := m.begin(definitionID, data)
	if err != nil {
		return nil, err
	}

	runErr := m.execute(ctx, sagaID, def)
	instance, _ := m.GetSaga(sagaID)
	return instance, runErr
}

// StartSaga executes a saga in the background and returns its id immediately
func (m *Manager) StartSaga(ctx context.Context, definitionID string, data SagaData) (SagaID, error) {
	sagaID, def, err := m.begin(definitionID, data)
	if err != nil {
		return "", err
	}

	go func() {
		_ = m.execute(ctx, sagaID, def)
	}()
	return sagaID, nil
}

// GetSaga returns a snapshot of a saga instance
func (m *Manager) GetSaga(sagaID SagaID) (*SagaInstance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	instance, exists := m.instances[sagaID]
	if !exists {
		return nil, false
	}

	snapshot := *instance
	snapshot.Steps = append([]StepExecution(nil), instance.Steps...)
	return &snapshot, true
}

// EventChannel returns the event channel for listening to saga events
func (m *Manager) EventChannel() <-chan SagaEvent {
	return m.eventChan
}

func (m *Manager) begin(definitionID string, data SagaData) (SagaID, SagaDefinition, error) {
	m.mu.Lock()
	def, exists := m.definitions[definitionID]
	if !exists {
		m.mu.Unlock()
		return "", nil, fmt.Errorf("saga definition not found: %s", definitionID)
	}

	if data == nil {
		data = SagaData{}
	}
	sagaID := SagaID(definitionID + "_" + uuid.NewString())

	steps := def.Steps()
	stepExecs := make([]StepExecution, len(steps))
	for i, step := range steps {
		stepExecs[i] = StepExecution{ID: step.ID(), State: StepStatePending}
	}

	m.instances[sagaID] = &SagaInstance{
		ID:         sagaID,
		Definition: definitionID,
		State:      SagaStateStarted,
		Data:       data,
		Steps:      stepExecs,
		StartedAt:  time.Now(),
	}
	m.mu.Unlock()

	m.emitEvent(SagaEvent{SagaID: sagaID, Type: EventSagaStarted, Timestamp: time.Now()})
	m.logger.Info("Saga started", zap.String("sagaID", string(sagaID)), zap.String("definition", definitionID))
	return sagaID, def, nil
}

func (m *Manager) execute(ctx context.Context, sagaID SagaID, def SagaDefinition) error {
	m.update(sagaID, func(i *SagaInstance) { i.State = SagaStateRunning })

	ctx, cancel := context.WithTimeout(ctx, def.Timeout())
	defer cancel()

	data := m.data(sagaID)
	steps := def.Steps()

	for i, step := range steps {
		if err := m.executeStep(ctx, sagaID, i, step, data); err != nil {
			m.logger.Error("Step failed",
				zap.String("sagaID", string(sagaID)),
				zap.String("stepID", string(step.ID())),
				zap.Error(err))

			// Compensation gets its own deadline so an expired run can still undo its work.
			compCtx, compCancel := context.WithTimeout(context.WithoutCancel(ctx), def.Timeout())
			m.compensate(compCtx, sagaID, steps[:i], data, err)
			compCancel()
			return err
		}
	}

	m.finish(sagaID, SagaStateCompleted, "")
	m.emitEvent(SagaEvent{SagaID: sagaID, Type: EventSagaCompleted, Timestamp: time.Now()})
	m.logger.Info("Saga completed", zap.String("sagaID", string(sagaID)))
	return nil
}

func (m *Manager) executeStep(ctx context.Context, sagaID SagaID, index int, step Step, data SagaData) error {
	now := time.Now()
	m.update(sagaID, func(i *SagaInstance) {
		i.Steps[index].State = StepStateRunning
		i.Steps[index].StartedAt = &now
	})
	m.emitEvent(SagaEvent{SagaID: sagaID, StepID: step.ID(), Type: EventStepStarted, Timestamp: now})

	if err := ctx.Err(); err != nil {
		m.failStep(sagaID, index, step, err)
		return err
	}

	result := step.Execute(ctx, data)
	if !result.Success {
		err := result.Error
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrStepFailed, step.ID())
		}
		m.failStep(sagaID, index, step, err)
		return err
	}

	done := time.Now()
	m.update(sagaID, func(i *SagaInstance) {
		i.Steps[index].State = StepStateCompleted
		i.Steps[index].CompletedAt = &done
		i.Steps[index].Result = result.Data
	})
	m.emitEvent(SagaEvent{SagaID: sagaID, StepID: step.ID(), Type: EventStepCompleted, Timestamp: done, Data: result.Data})

	m.logger.Debug("Step completed",
		zap.String("sagaID", string(sagaID)),
		zap.String("stepID", string(step.ID())))
	return nil
}

func (m *Manager) failStep(sagaID SagaID, index int, step Step, err error) {
	now := time.Now()
	m.update(sagaID, func(i *SagaInstance) {
		i.Steps[index].State = StepStateFailed
		i.Steps[index].CompletedAt = &now
		i.Steps[index].Error = err.Error()
	})
	m.emitEvent(SagaEvent{SagaID: sagaID, StepID: step.ID(), Type: EventStepFailed, Timestamp: now, Data: err.Error()})
}

// compensate undoes completed steps in reverse order
func (m *Manager) compensate(ctx context.Context, sagaID SagaID, completed []Step, data SagaData, cause error) {
	m.logger.Info("Starting compensation", zap.String("sagaID", string(sagaID)))

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if err := step.Compensate(ctx, data); err != nil {
			m.logger.Error("Compensation failed",
				zap.String("sagaID", string(sagaID)),
				zap.String("stepID", string(step.ID())),
				zap.Error(err))
			continue
		}

		index := i
		m.update(sagaID, func(inst *SagaInstance) { inst.Steps[index].State = StepStateCompensated })
		m.emitEvent(SagaEvent{SagaID: sagaID, StepID: step.ID(), Type: EventStepCompensated, Timestamp: time.Now()})
	}

	m.finish(sagaID, SagaStateCompensated, cause.Error())
	m.emitEvent(SagaEvent{SagaID: sagaID, Type: EventSagaCompensated, Timestamp: time.Now()})
	m.logger.Info("Saga compensated", zap.String("sagaID", string(sagaID)))
}

func (m *Manager) data(sagaID SagaID) SagaData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[sagaID].Data
}

func (m *Manager) update(sagaID SagaID, fn func(*SagaInstance)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if instance, exists := m.instances[sagaID]; exists {
		fn(instance)
	}
}

// finish records the final state and evicts the oldest finished instances
// beyond the history size.
func (m *Manager) finish(sagaID SagaID, state SagaState, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	instance, exists := m.instances[sagaID]
	if !exists {
		return
	}
	now := time.Now()
	instance.State = state
	instance.Error = errMsg
	instance.CompletedAt = &now

	m.finished = append(m.finished, sagaID)
	for len(m.finished) > m.historySize {
		delete(m.instances, m.finished[0])
		m.finished = m.finished[1:]
	}
}

func (m *Manager) emitEvent(event SagaEvent) {
	select {
	case m.eventChan <- event:
	default:
		m.logger.Debug("Event channel full, dropping event", zap.String("type", event.Type))
	}
}
