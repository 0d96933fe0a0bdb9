package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jonathan/env-validator/internal/types"
)

// fakeClient replays a scripted status sequence.
type fakeClient struct {
	info       *types.EnvironmentInfo
	infoErr    error
	taskID     string
	startErr   error
	statuses   []types.TaskStatus
	checkErr   error
	blockCheck bool
	items      []types.ValidationItem
	listErr    error
	calls      []string
	checks     int
	listCalls  int
}

func newFakeClient(statuses ...types.TaskStatus) *fakeClient {
	return &fakeClient{
		info:     &types.EnvironmentInfo{ID: "env-1", Name: "Sample Project", Environment: "Production"},
		taskID:   "task-1",
		statuses: statuses,
	}
}

func (f *fakeClient) EnvironmentInformation(context.Context) (*types.EnvironmentInfo, error) {
	f.calls = append(f.calls, "info")
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.info, nil
}

func (f *fakeClient) StartEnvironmentValidation(context.Context) (*types.ValidationTask, error) {
	f.calls = append(f.calls, "start")
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &types.ValidationTask{ID: f.taskID, Status: types.TaskStatusQueued}, nil
}

func (f *fakeClient) CheckEnvironmentValidation(ctx context.Context, taskID string) (*types.ValidationTask, error) {
	f.calls = append(f.calls, "check")
	f.checks++
	if f.blockCheck {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	if taskID != f.taskID {
		return nil, errors.New("unknown task " + taskID)
	}
	idx := f.checks - 1
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	return &types.ValidationTask{ID: taskID, Status: f.statuses[idx]}, nil
}

func (f *fakeClient) ListEnvironmentValidationIssues(context.Context, string) ([]types.ValidationItem, error) {
	f.calls = append(f.calls, "list")
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items, nil
}

// fakeStore records run history calls.
type fakeStore struct {
	createErr  error
	created    []string
	records    []types.ExportRecord
	steps      []types.StepTiming
	status     string
	issueCount int
	completed  int
}

func (s *fakeStore) CreateRun(_ context.Context, _ uuid.UUID, project, environment, taskID string) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = []string{project, environment, taskID}
	return nil
}

func (s *fakeStore) SaveRecords(_ context.Context, _ uuid.UUID, records []types.ExportRecord) error {
	s.records = append(s.records, records...)
	return nil
}

func (s *fakeStore) SaveRunSteps(_ context.Context, _ uuid.UUID, steps []types.StepTiming) error {
	s.steps = append([]types.StepTiming(nil), steps...)
	return nil
}

func (s *fakeStore) CompleteRun(_ context.Context, _ uuid.UUID, status string, issueCount int) error {
	s.completed++
	s.status = status
	s.issueCount = issueCount
	return nil
}
