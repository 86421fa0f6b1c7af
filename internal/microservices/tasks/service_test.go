package tasks

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/broker"
	"taskhub/internal/shared"
)

// fakeTaskRepo is an in-memory Repository
type fakeTaskRepo struct {
	tasks    map[string]*Task
	comments []Comment
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*Task)}
}

func (f *fakeTaskRepo) Create(ctx context.Context, task *Task, assigneeIDs []string) error {
	if task.ID == "" {
		task.ID = "task-" + task.Title
	}
	for _, userID := range assigneeIDs {
		task.Assignments = append(task.Assignments, TaskAssignment{TaskID: task.ID, UserID: userID})
	}
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskRepo) FindAll(ctx context.Context, filter TaskFilter) ([]Task, int64, error) {
	var rows []Task
	for _, task := range f.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		rows = append(rows, *task)
	}
	return rows, int64(len(rows)), nil
}

func (f *fakeTaskRepo) FindByID(ctx context.Context, id string) (*Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskRepo) Update(ctx context.Context, task *Task, assigneeIDs []string) error {
	if assigneeIDs != nil {
		task.Assignments = nil
		for _, userID := range assigneeIDs {
			task.Assignments = append(task.Assignments, TaskAssignment{TaskID: task.ID, UserID: userID})
		}
	}
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskRepo) CreateComment(ctx context.Context, comment *Comment) error {
	if comment.ID == "" {
		comment.ID = "c1"
	}
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeTaskRepo) FindComments(ctx context.Context, taskID string) ([]Comment, error) {
	var rows []Comment
	for _, c := range f.comments {
		if c.TaskID == taskID {
			rows = append(rows, c)
		}
	}
	return rows, nil
}

type fakeHistoryRepo struct {
	entries []HistoryEntry
}

func (f *fakeHistoryRepo) Record(ctx context.Context, entry *HistoryEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByTask(ctx context.Context, taskID string) ([]HistoryEntry, error) {
	return f.entries, nil
}

type fakeDirectory struct {
	users []shared.User
	err   error
}

func (f *fakeDirectory) FindByIDs(ctx context.Context, ids []string) ([]shared.User, error) {
	return f.users, f.err
}

type taskServiceFixture struct {
	repo    *fakeTaskRepo
	history *fakeHistoryRepo
	dir     *fakeDirectory
	pub     *fakePublisher
	svc     *Service
}

func newTaskServiceFixture() *taskServiceFixture {
	repo := newFakeTaskRepo()
	history := &fakeHistoryRepo{}
	dir := &fakeDirectory{}
	pub := &fakePublisher{}
	svc := NewService(repo, history, dir, NewEmitter(pub, slog.Default()), slog.Default())
	return &taskServiceFixture{repo: repo, history: history, dir: dir, pub: pub, svc: svc}
}

func TestCreateTask_EmitsAfterStore(t *testing.T) {
	fx := newTaskServiceFixture()

	resp, err := fx.svc.Create(context.Background(), CreateTaskInput{
		Title:           "ship it",
		Priority:        PriorityHigh,
		AssignedUserIDs: []string{"alice", "bob", "bob"},
		CreatedBy:       "alice",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusTodo, resp.Status)
	assert.Equal(t, []string{"alice", "bob"}, resp.AssignedUserIDs)
	require.Len(t, fx.pub.emitted, 1)
	assert.Equal(t, TopicTaskCreated, fx.pub.emitted[0].topic)
	assert.Len(t, fx.repo.tasks, 1)
}

func TestCreateTask_RequiresTitle(t *testing.T) {
	fx := newTaskServiceFixture()

	_, err := fx.svc.Create(context.Background(), CreateTaskInput{CreatedBy: "alice"})

	remote, ok := broker.AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 400, remote.StatusCode)
	assert.Empty(t, fx.pub.emitted)
}

func TestCreateTask_DefaultsPriorityToMedium(t *testing.T) {
	fx := newTaskServiceFixture()

	resp, err := fx.svc.Create(context.Background(), CreateTaskInput{Title: "x", CreatedBy: "alice"})

	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, resp.Priority)
}

func TestFindByID_NotFoundIsRemote404(t *testing.T) {
	fx := newTaskServiceFixture()

	_, err := fx.svc.FindByID(context.Background(), "missing")

	remote, ok := broker.AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 404, remote.StatusCode)
	assert.Equal(t, "Task not found", remote.Message.String())
}

func TestUpdateTask_StatusChangeRecordsHistory(t *testing.T) {
	fx := newTaskServiceFixture()
	created, err := fx.svc.Create(context.Background(), CreateTaskInput{Title: "ship it", CreatedBy: "alice"})
	require.NoError(t, err)
	fx.pub.emitted = nil

	status := StatusInProgress
	resp, err := fx.svc.Update(context.Background(), UpdateTaskInput{
		TaskID:    created.ID,
		UpdatedBy: "bob",
		Status:    &status,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, resp.Status)

	require.Len(t, fx.history.entries, 1)
	assert.Equal(t, "status", fx.history.entries[0].Field)
	assert.Equal(t, "TODO", fx.history.entries[0].OldValue)
	assert.Equal(t, "IN_PROGRESS", fx.history.entries[0].NewValue)

	require.Len(t, fx.pub.emitted, 1)
	event := fx.pub.emitted[0].payload.(TaskUpdatedEvent)
	assert.True(t, event.StatusChanged)
}

func TestUpdateTask_NoStatusChangeSkipsHistory(t *testing.T) {
	fx := newTaskServiceFixture()
	created, err := fx.svc.Create(context.Background(), CreateTaskInput{Title: "ship it", CreatedBy: "alice"})
	require.NoError(t, err)
	fx.pub.emitted = nil

	title := "ship it now"
	_, err = fx.svc.Update(context.Background(), UpdateTaskInput{
		TaskID:    created.ID,
		UpdatedBy: "bob",
		Title:     &title,
	})

	require.NoError(t, err)
	assert.Empty(t, fx.history.entries)

	require.Len(t, fx.pub.emitted, 1)
	event := fx.pub.emitted[0].payload.(TaskUpdatedEvent)
	assert.False(t, event.StatusChanged)
}

func TestDeleteTask_OnlyCreator(t *testing.T) {
	fx := newTaskServiceFixture()
	created, err := fx.svc.Create(context.Background(), CreateTaskInput{Title: "ship it", CreatedBy: "alice"})
	require.NoError(t, err)

	err = fx.svc.Delete(context.Background(), created.ID, "bob")
	remote, ok := broker.AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 403, remote.StatusCode)
	assert.Len(t, fx.repo.tasks, 1)

	require.NoError(t, fx.svc.Delete(context.Background(), created.ID, "alice"))
	assert.Empty(t, fx.repo.tasks)
}

func TestCreateComment_EmitsWithTaskAudience(t *testing.T) {
	fx := newTaskServiceFixture()
	created, err := fx.svc.Create(context.Background(), CreateTaskInput{
		Title:           "ship it",
		CreatedBy:       "alice",
		AssignedUserIDs: []string{"bob"},
	})
	require.NoError(t, err)
	fx.pub.emitted = nil

	comment, err := fx.svc.CreateComment(context.Background(), CreateCommentInput{
		TaskID:  created.ID,
		UserID:  "bob",
		Content: "done",
	})

	require.NoError(t, err)
	require.Len(t, fx.pub.emitted, 1)
	event := fx.pub.emitted[0].payload.(CommentCreatedEvent)
	assert.Equal(t, comment.ID, event.CommentID)
	assert.Equal(t, "alice", event.CreatedBy)
	assert.Equal(t, []string{"bob"}, event.AssignedUserIDs)
}

func TestCreateComment_UnknownTaskIs404(t *testing.T) {
	fx := newTaskServiceFixture()

	_, err := fx.svc.CreateComment(context.Background(), CreateCommentInput{
		TaskID:  "missing",
		UserID:  "bob",
		Content: "done",
	})

	remote, ok := broker.AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 404, remote.StatusCode)
	assert.Empty(t, fx.pub.emitted)
}

func TestFindComments_ResolvesUsernamesWithFallback(t *testing.T) {
	fx := newTaskServiceFixture()
	fx.dir.users = []shared.User{{ID: "bob", Username: "bob-the-builder"}}

	created, err := fx.svc.Create(context.Background(), CreateTaskInput{Title: "ship it", CreatedBy: "alice"})
	require.NoError(t, err)
	_, err = fx.svc.CreateComment(context.Background(), CreateCommentInput{TaskID: created.ID, UserID: "bob", Content: "one"})
	require.NoError(t, err)
	_, err = fx.svc.CreateComment(context.Background(), CreateCommentInput{TaskID: created.ID, UserID: "ghost", Content: "two"})
	require.NoError(t, err)

	rows, err := fx.svc.FindComments(context.Background(), created.ID)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "bob-the-builder", rows[0].Username)
	assert.Equal(t, "unknown user", rows[1].Username)
}

func TestFindComments_DirectoryFailureDegrades(t *testing.T) {
	fx := newTaskServiceFixture()
	fx.dir.err = broker.ErrTimeout

	created, err := fx.svc.Create(context.Background(), CreateTaskInput{Title: "ship it", CreatedBy: "alice"})
	require.NoError(t, err)
	_, err = fx.svc.CreateComment(context.Background(), CreateCommentInput{TaskID: created.ID, UserID: "bob", Content: "one"})
	require.NoError(t, err)

	rows, err := fx.svc.FindComments(context.Background(), created.ID)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "unknown user", rows[0].Username)
}
