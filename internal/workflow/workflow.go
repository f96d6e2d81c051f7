// Package workflow drives pausable prospecting runs. A run stops before
// discovery and again before persistence, checkpoints its full state and
// waits for a reviewer to resume it, optionally patching the queries or the
// candidate list.
package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/pipeline"
)

// Stages is the pipeline surface the workflow drives. Implemented by
// *pipeline.Pipeline.
type Stages interface {
	Initialize(ctx context.Context, run *pipeline.Run) error
	Discover(ctx context.Context, run *pipeline.Run) error
	Validate(ctx context.Context, run *pipeline.Run) error
	Persist(ctx context.Context, run *pipeline.Run) error
}

// CheckpointStore persists run snapshots between approvals. Satisfied by
// store.Store.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, cp *model.RunCheckpoint) error
	GetCheckpoint(ctx context.Context, id string) (*model.RunCheckpoint, error)
	DeleteCheckpoint(ctx context.Context, id string) error
}

// Event is a reviewer action on a paused run. Queries replaces the generated
// queries at the query approval gate; Candidates replaces the extracted
// candidates at the persist approval gate. Nil fields keep the run's own.
type Event struct {
	Approve    bool             `json:"approve"`
	Queries    []string         `json:"queries,omitempty"`
	Candidates []model.Prospect `json:"candidates,omitempty"`
}

// Status is the externally visible state of a run.
type Status struct {
	ID    string         `json:"id"`
	City  string         `json:"city"`
	State model.RunState `json:"state"`
	Run   *pipeline.Run  `json:"run"`
}

// Manager starts, checkpoints and resumes runs.
type Manager struct {
	stages Stages
	store  CheckpointStore
}

// NewManager creates a workflow manager over the pipeline stages.
func NewManager(stages Stages, store CheckpointStore) *Manager {
	return &Manager{stages: stages, store: store}
}

// Start begins a run for a city. With autoApprove the run executes to
// completion in one call; otherwise it pauses after query generation and
// checkpoints as awaiting_query_approval.
func (m *Manager) Start(ctx context.Context, run *pipeline.Run, autoApprove bool) (*Status, error) {
	// Checkpoint before the first stage so the run is queryable while the
	// stages execute.
	if err := m.checkpoint(ctx, run, model.RunRunning); err != nil {
		return nil, err
	}
	if err := m.stages.Initialize(ctx, run); err != nil {
		return m.fail(ctx, run, err)
	}
	if run.Cached {
		return m.finish(ctx, run)
	}

	if !autoApprove {
		return m.pause(ctx, run, model.RunAwaitingQueryApproval)
	}

	if err := m.discoverAndValidate(ctx, run); err != nil {
		return m.fail(ctx, run, err)
	}
	if err := m.stages.Persist(ctx, run); err != nil {
		return m.fail(ctx, run, err)
	}
	return m.finish(ctx, run)
}

// Resume applies a reviewer event to a paused run and advances it to the
// next gate. A rejection marks the run failed.
func (m *Manager) Resume(ctx context.Context, id string, ev Event) (*Status, error) {
	cp, err := m.store.GetCheckpoint(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: load checkpoint")
	}

	var run pipeline.Run
	if err := json.Unmarshal(cp.Data, &run); err != nil {
		return nil, eris.Wrap(err, "workflow: decode checkpoint")
	}

	switch cp.State {
	case model.RunAwaitingQueryApproval:
		if !ev.Approve {
			run.Note("Queries rejeitadas pelo revisor")
			return m.fail(ctx, &run, nil)
		}
		if len(ev.Queries) > 0 {
			run.Queries = ev.Queries
			run.Note("Queries substituídas pelo revisor")
		}
		if err := m.checkpoint(ctx, &run, model.RunRunning); err != nil {
			return nil, err
		}
		if err := m.discoverAndValidate(ctx, &run); err != nil {
			return m.fail(ctx, &run, err)
		}
		return m.pause(ctx, &run, model.RunAwaitingPersistApproval)

	case model.RunAwaitingPersistApproval:
		if !ev.Approve {
			run.Note("Candidatos rejeitados pelo revisor")
			return m.fail(ctx, &run, nil)
		}
		if ev.Candidates != nil {
			run.Candidates = ev.Candidates
			run.Note("Lista de candidatos ajustada pelo revisor")
		}
		if err := m.checkpoint(ctx, &run, model.RunRunning); err != nil {
			return nil, err
		}
		if err := m.stages.Persist(ctx, &run); err != nil {
			return m.fail(ctx, &run, err)
		}
		return m.finish(ctx, &run)

	case model.RunDone, model.RunFailed:
		return nil, eris.Errorf("workflow: run %s already finished (%s)", id, cp.State)

	default:
		return nil, eris.Errorf("workflow: run %s is not awaiting approval (%s)", id, cp.State)
	}
}

// Status returns the checkpointed state of a run.
func (m *Manager) Status(ctx context.Context, id string) (*Status, error) {
	cp, err := m.store.GetCheckpoint(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: load checkpoint")
	}
	var run pipeline.Run
	if err := json.Unmarshal(cp.Data, &run); err != nil {
		return nil, eris.Wrap(err, "workflow: decode checkpoint")
	}
	return &Status{ID: cp.ID, City: cp.City, State: cp.State, Run: &run}, nil
}

func (m *Manager) discoverAndValidate(ctx context.Context, run *pipeline.Run) error {
	if err := m.stages.Discover(ctx, run); err != nil {
		return err
	}
	return m.stages.Validate(ctx, run)
}

// pause checkpoints the run in an awaiting state.
func (m *Manager) pause(ctx context.Context, run *pipeline.Run, state model.RunState) (*Status, error) {
	if err := m.checkpoint(ctx, run, state); err != nil {
		return nil, err
	}
	zap.L().Info("workflow: run paused",
		zap.String("run_id", run.ID),
		zap.String("state", string(state)),
	)
	return &Status{ID: run.ID, City: run.City, State: state, Run: run}, nil
}

// finish checkpoints the terminal done state. The checkpoint is kept so the
// run remains queryable.
func (m *Manager) finish(ctx context.Context, run *pipeline.Run) (*Status, error) {
	if err := m.checkpoint(ctx, run, model.RunDone); err != nil {
		return nil, err
	}
	return &Status{ID: run.ID, City: run.City, State: model.RunDone, Run: run}, nil
}

// fail records the failed state. The stage error, when present, wins over
// checkpointing errors.
func (m *Manager) fail(ctx context.Context, run *pipeline.Run, stageErr error) (*Status, error) {
	if err := m.checkpoint(ctx, run, model.RunFailed); err != nil {
		if stageErr != nil {
			zap.L().Warn("workflow: failed to checkpoint failed run",
				zap.String("run_id", run.ID),
				zap.Error(err),
			)
			return nil, stageErr
		}
		return nil, err
	}
	if stageErr != nil {
		return nil, stageErr
	}
	return &Status{ID: run.ID, City: run.City, State: model.RunFailed, Run: run}, nil
}

func (m *Manager) checkpoint(ctx context.Context, run *pipeline.Run, state model.RunState) error {
	data, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "workflow: encode checkpoint")
	}
	cp := &model.RunCheckpoint{
		ID:        run.ID,
		City:      run.City,
		State:     state,
		Data:      data,
		UpdatedAt: time.Now().UTC(),
	}
	if err := m.store.SaveCheckpoint(ctx, cp); err != nil {
		return eris.Wrap(err, "workflow: save checkpoint")
	}
	return nil
}
