package saga

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type recordingStep struct {
	id      StepID
	fail    error
	silent  bool
	log     *[]string
	compErr error
}

func (s *recordingStep) ID() StepID { return s.id }

func (s *recordingStep) Execute(ctx context.Context, data SagaData) StepResult {
	*s.log = append(*s.log, "exec:"+string(s.id))
	if s.fail != nil {
		return StepResult{Success: false, Error: s.fail}
	}
	if s.silent {
		return StepResult{Success: false}
	}
	data[string(s.id)] = true
	return StepResult{Success: true, Data: string(s.id)}
}

func (s *recordingStep) Compensate(ctx context.Context, data SagaData) error {
	*s.log = append(*s.log, "comp:"+string(s.id))
	return s.compErr
}

type testDefinition struct {
	steps []Step
}

func (d *testDefinition) ID() string             { return "test" }
func (d *testDefinition) Steps() []Step          { return d.steps }
func (d *testDefinition) Timeout() time.Duration { return time.Second }

func TestManager_RunCompletes(t *testing.T) {
	var log []string
	m := NewManager(zaptest.NewLogger(t))
	m.RegisterDefinition(&testDefinition{steps: []Step{
		&recordingStep{id: "a", log: &log},
		&recordingStep{id: "b", log: &log},
	}})

	instance, err := m.Run(context.Background(), "test", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if instance.State != SagaStateCompleted {
		t.Errorf("Expected completed, got %s", instance.State)
	}
	if instance.Data["a"] != true || instance.Data["b"] != true {
		t.Errorf("Expected step outputs in data, got %v", instance.Data)
	}
	for _, step := range instance.Steps {
		if step.State != StepStateCompleted {
			t.Errorf("Expected step %s completed, got %s", step.ID, step.State)
		}
	}
}

func TestManager_RunCompensatesInReverse(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	m := NewManager(zaptest.NewLogger(t))
	m.RegisterDefinition(&testDefinition{steps: []Step{
		&recordingStep{id: "a", log: &log},
		&recordingStep{id: "b", log: &log, compErr: errors.New("cannot undo")},
		&recordingStep{id: "c", log: &log, fail: boom},
		&recordingStep{id: "d", log: &log},
	}})

	instance, err := m.Run(context.Background(), "test", SagaData{})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	want := []string{"exec:a", "exec:b", "exec:c", "comp:b", "comp:a"}
	if len(log) != len(want) {
		t.Fatalf("Expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, log[i])
		}
	}

	if instance.State != SagaStateCompensated || instance.Error != "boom" {
		t.Errorf("Unexpected instance: %+v", instance)
	}
	states := []StepState{StepStateCompensated, StepStateCompleted, StepStateFailed, StepStatePending}
	for i, s := range states {
		if instance.Steps[i].State != s {
			t.Errorf("Expected step %d %s, got %s", i, s, instance.Steps[i].State)
		}
	}
}

func TestManager_FailureWithoutError(t *testing.T) {
	var log []string
	m := NewManager(zaptest.NewLogger(t))
	m.RegisterDefinition(&testDefinition{steps: []Step{&recordingStep{id: "a", log: &log, silent: true}}})

	if _, err := m.Run(context.Background(), "test", nil); !errors.Is(err, ErrStepFailed) {
		t.Errorf("Expected ErrStepFailed, got %v", err)
	}
}

func TestManager_UnknownDefinition(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	if _, err := m.Run(context.Background(), "missing", nil); err == nil {
		t.Error("Expected error")
	}
	if _, err := m.StartSaga(context.Background(), "missing", nil); err == nil {
		t.Error("Expected error")
	}
}

func TestManager_StartSagaEmitsEvents(t *testing.T) {
	var mu sync.Mutex
	var log []string
	m := NewManager(zaptest.NewLogger(t))
	m.RegisterDefinition(&testDefinition{steps: []Step{&lockedStep{id: "a", mu: &mu, log: &log}}})

	id, err := m.StartSaga(context.Background(), "test", nil)
	if err != nil {
		t.Fatalf("StartSaga failed: %v", err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-m.EventChannel():
			if ev.SagaID != id {
				t.Fatalf("Unexpected saga id %s", ev.SagaID)
			}
			if ev.Type == EventSagaCompleted {
				instance, ok := m.GetSaga(id)
				if !ok || instance.State != SagaStateCompleted {
					t.Errorf("Expected completed instance, got %+v", instance)
				}
				return
			}
		case <-timeout:
			t.Fatal("Timed out waiting for completion")
		}
	}
}

func TestManager_HistoryBounded(t *testing.T) {
	var log []string
	m := NewManager(zaptest.NewLogger(t))
	m.historySize = 2
	m.RegisterDefinition(&testDefinition{steps: []Step{&recordingStep{id: "a", log: &log}}})

	first, _ := m.Run(context.Background(), "test", nil)
	m.Run(context.Background(), "test", nil)
	m.Run(context.Background(), "test", nil)

	if _, ok := m.GetSaga(first.ID); ok {
		t.Error("Expected oldest instance to be evicted")
	}
}

type lockedStep struct {
	id  StepID
	mu  *sync.Mutex
	log *[]string
}

func (s *lockedStep) ID() StepID { return s.id }

func (s *lockedStep) Execute(ctx context.Context, data SagaData) StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.log = append(*s.log, string(s.id))
	return StepResult{Success: true}
}

func (s *lockedStep) Compensate(ctx context.Context, data SagaData) error { return nil }
