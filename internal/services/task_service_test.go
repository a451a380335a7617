package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aididalam/tasktrack/internal/models"
)

var errStorageDown = errors.New("storage down")

// stubTaskRepository implements TaskRepository in memory.
type stubTaskRepository struct {
	tasks  map[string]*models.Task
	nextID int
}

func newStubTaskRepository() *stubTaskRepository {
	return &stubTaskRepository{tasks: map[string]*models.Task{}, nextID: 1}
}

func (r *stubTaskRepository) Create(_ context.Context, task *models.Task) error {
	task.ID = strconv.Itoa(r.nextID)
	r.nextID++
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r *stubTaskRepository) FindByID(_ context.Context, taskID, userID string) (*models.Task, error) {
	task, ok := r.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (r *stubTaskRepository) Update(_ context.Context, task *models.Task) error {
	stored, ok := r.tasks[task.ID]
	if !ok || stored.UserID != task.UserID {
		return ErrTaskNotFound
	}
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r *stubTaskRepository) Delete(_ context.Context, taskID, userID string) error {
	task, ok := r.tasks[taskID]
	if !ok || task.UserID != userID {
		return ErrTaskNotFound
	}
	delete(r.tasks, taskID)
	return nil
}

func (r *stubTaskRepository) ListByUserID(_ context.Context, userID string) ([]*models.Task, error) {
	var out []*models.Task
	// Stable order by ID for assertions.
	for i := 1; i < r.nextID; i++ {
		id := strconv.Itoa(i)
		if task, ok := r.tasks[id]; ok && task.UserID == userID {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out, nil
}

// stubFilterStore implements FilterStore in memory.
type stubFilterStore struct {
	filters   map[string]models.TaskFilter
	upsertErr error
	getErr    error
}

func newStubFilterStore() *stubFilterStore {
	return &stubFilterStore{filters: map[string]models.TaskFilter{}}
}

func (s *stubFilterStore) Upsert(_ context.Context, userID string, filter models.TaskFilter) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.filters[userID] = filter
	return nil
}

func (s *stubFilterStore) Get(_ context.Context, userID string) (*models.TaskFilter, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	filter, ok := s.filters[userID]
	if !ok {
		return nil, ErrFilterNotFound
	}
	return &filter, nil
}

// stubPublisher records published events on a buffered channel so
// tests can wait for the fire-and-forget goroutine.
type stubPublisher struct {
	events chan models.TaskEvent
}

func newStubPublisher() *stubPublisher {
	return &stubPublisher{events: make(chan models.TaskEvent, 8)}
}

func (p *stubPublisher) Publish(_ context.Context, event models.TaskEvent) {
	p.events <- event
}

func (p *stubPublisher) wait(t *testing.T) models.TaskEvent {
	t.Helper()
	select {
	case event := <-p.events:
		return event
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast event")
		return models.TaskEvent{}
	}
}

func (p *stubPublisher) assertNone(t *testing.T) {
	t.Helper()
	select {
	case event := <-p.events:
		t.Fatalf("unexpected broadcast event %q", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestTaskService() (TaskService, *stubTaskRepository, *stubFilterStore, *stubPublisher) {
	repo := newStubTaskRepository()
	filters := newStubFilterStore()
	publisher := newStubPublisher()
	service := NewTaskService(zerolog.Nop(), repo, filters, publisher)
	return service, repo, filters, publisher
}

func mustDate(t *testing.T, s string) *models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return &d
}

func TestListTasksStoresFilterAndApplies(t *testing.T) {
	service, repo, filters, _ := newTestTaskService()
	ctx := context.Background()

	_ = repo.Create(ctx, &models.Task{UserID: "u1", Name: "Buy milk", Status: models.StatusToDo})
	_ = repo.Create(ctx, &models.Task{UserID: "u1", Name: "Write report", Status: models.StatusDone})

	got, err := service.ListTasks(ctx, "u1", models.TaskFilter{Statuses: "Done"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Write report" {
		t.Fatalf("expected only the done task, got %d tasks", len(got))
	}

	stored, err := filters.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("filter not stored: %v", err)
	}
	if stored.Statuses != "Done" {
		t.Fatalf("stored filter = %+v", stored)
	}
}

func TestListTasksLastWriteWins(t *testing.T) {
	service, _, filters, _ := newTestTaskService()
	ctx := context.Background()

	f1 := models.TaskFilter{SearchText: "milk", Statuses: "To Do"}
	f2 := models.TaskFilter{StartDate: mustDate(t, "2025-03-01")}

	if _, err := service.ListTasks(ctx, "u1", f1); err != nil {
		t.Fatalf("first list failed: %v", err)
	}
	if _, err := service.ListTasks(ctx, "u1", f2); err != nil {
		t.Fatalf("second list failed: %v", err)
	}

	stored, err := filters.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("filter not stored: %v", err)
	}
	if stored.SearchText != "" || stored.Statuses != "" {
		t.Fatalf("expected the earlier filter replaced wholesale, got %+v", stored)
	}
	if stored.StartDate == nil || !stored.StartDate.Equal(f2.StartDate.Time) {
		t.Fatalf("expected start date of second filter, got %+v", stored)
	}
}

func TestListTasksEmptyFilterClearsCriteria(t *testing.T) {
	service, repo, filters, _ := newTestTaskService()
	ctx := context.Background()

	_ = repo.Create(ctx, &models.Task{UserID: "u1", Name: "Buy milk", Status: models.StatusToDo})
	_ = repo.Create(ctx, &models.Task{UserID: "u1", Name: "Write report", Status: models.StatusDone})

	if _, err := service.ListTasks(ctx, "u1", models.TaskFilter{Statuses: "Done"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	got, err := service.ListTasks(ctx, "u1", models.TaskFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected cleared filter to return everything, got %d tasks", len(got))
	}

	stored, _ := filters.Get(ctx, "u1")
	if !stored.IsZero() {
		t.Fatalf("expected stored filter cleared, got %+v", stored)
	}
}

func TestListTasksFilterStoreFailurePropagates(t *testing.T) {
	service, _, filters, _ := newTestTaskService()
	filters.upsertErr = errStorageDown

	_, err := service.ListTasks(context.Background(), "u1", models.TaskFilter{})
	if !errors.Is(err, errStorageDown) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestCreateTaskReturnsFilteredListExcludingNewTask(t *testing.T) {
	service, _, filters, publisher := newTestTaskService()
	ctx := context.Background()

	// Stored filter only matches done tasks; the new task is To Do.
	_ = filters.Upsert(ctx, "u1", models.TaskFilter{Statuses: "Done"})

	got, err := service.CreateTask(ctx, CreateTaskParams{
		UserID:      "u1",
		Name:        "Buy milk",
		Description: "2 liters",
		Status:      models.StatusToDo,
		DueDate:     mustDate(t, "2025-03-15"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected the stored filter to exclude the new task, got %d tasks", len(got))
	}

	event := publisher.wait(t)
	if event.Type != models.EventTaskAdded {
		t.Fatalf("expected %s event, got %s", models.EventTaskAdded, event.Type)
	}
	list, ok := event.Task.([]*models.Task)
	if !ok {
		t.Fatalf("expected event to carry the filtered list, got %T", event.Task)
	}
	if len(list) != 0 {
		t.Fatalf("expected event list to match the response, got %d tasks", len(list))
	}
}

func TestCreateTaskWithoutStoredFilterReturnsEverything(t *testing.T) {
	service, _, _, publisher := newTestTaskService()
	ctx := context.Background()

	got, err := service.CreateTask(ctx, CreateTaskParams{
		UserID: "u1",
		Name:   "Buy milk",
		Status: models.StatusToDo,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Buy milk" {
		t.Fatalf("expected the new task in the unfiltered list, got %d tasks", len(got))
	}

	event := publisher.wait(t)
	list, ok := event.Task.([]*models.Task)
	if !ok || len(list) != 1 {
		t.Fatalf("expected event to carry the same list as the response")
	}
}

func TestCreateTaskRejectsUnknownStatus(t *testing.T) {
	service, _, _, publisher := newTestTaskService()

	_, err := service.CreateTask(context.Background(), CreateTaskParams{
		UserID: "u1",
		Name:   "Buy milk",
		Status: "Pending",
	})
	if !errors.Is(err, ErrInvalidTaskStatus) {
		t.Fatalf("expected ErrInvalidTaskStatus, got %v", err)
	}
	publisher.assertNone(t)
}

func TestUpdateTaskAppliesPatchAndBroadcasts(t *testing.T) {
	service, repo, _, publisher := newTestTaskService()
	ctx := context.Background()

	task := &models.Task{UserID: "u1", Name: "Buy milk", Description: "2 liters", Status: models.StatusToDo}
	_ = repo.Create(ctx, task)

	newStatus := models.StatusDone
	got, err := service.UpdateTask(ctx, UpdateTaskParams{
		ID:     task.ID,
		UserID: "u1",
		Status: &newStatus,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if got.Status != models.StatusDone {
		t.Fatalf("expected status updated, got %q", got.Status)
	}
	if got.Name != "Buy milk" || got.Description != "2 liters" {
		t.Fatalf("expected untouched fields preserved, got %+v", got)
	}

	event := publisher.wait(t)
	if event.Type != models.EventTaskUpdate {
		t.Fatalf("expected %s event, got %s", models.EventTaskUpdate, event.Type)
	}
	updated, ok := event.Task.(*models.Task)
	if !ok || updated.ID != task.ID {
		t.Fatalf("expected event to carry the updated task")
	}
}

func TestUpdateTaskOfAnotherUserReturnsNotFoundWithoutBroadcast(t *testing.T) {
	service, repo, _, publisher := newTestTaskService()
	ctx := context.Background()

	task := &models.Task{UserID: "owner", Name: "Buy milk", Status: models.StatusToDo}
	_ = repo.Create(ctx, task)

	name := "hijacked"
	_, err := service.UpdateTask(ctx, UpdateTaskParams{
		ID:     task.ID,
		UserID: "intruder",
		Name:   &name,
	})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	publisher.assertNone(t)

	stored, _ := repo.FindByID(ctx, task.ID, "owner")
	if stored.Name != "Buy milk" {
		t.Fatalf("expected the task untouched, got %+v", stored)
	}
}

func TestDeleteTaskBroadcastsDeletedTask(t *testing.T) {
	service, repo, _, publisher := newTestTaskService()
	ctx := context.Background()

	task := &models.Task{UserID: "u1", Name: "Buy milk", Status: models.StatusToDo}
	_ = repo.Create(ctx, task)

	err := service.DeleteTask(ctx, task.ID, "u1")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	event := publisher.wait(t)
	if event.Type != models.EventTaskDelete {
		t.Fatalf("expected %s event, got %s", models.EventTaskDelete, event.Type)
	}
	deleted, ok := event.Task.(*models.Task)
	if !ok || deleted.ID != task.ID {
		t.Fatalf("expected event to carry the deleted task")
	}

	if _, err = repo.FindByID(ctx, task.ID, "u1"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected the task gone, got %v", err)
	}
}

func TestDeleteTaskOfAnotherUserReturnsNotFoundWithoutBroadcast(t *testing.T) {
	service, repo, _, publisher := newTestTaskService()
	ctx := context.Background()

	task := &models.Task{UserID: "owner", Name: "Buy milk", Status: models.StatusToDo}
	_ = repo.Create(ctx, task)

	err := service.DeleteTask(ctx, task.ID, "intruder")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	publisher.assertNone(t)
}

// blockedPublisher simulates an unreachable broadcast channel.
type blockedPublisher struct {
	published chan struct{}
}

func (p *blockedPublisher) Publish(context.Context, models.TaskEvent) {
	close(p.published)
	// Simulate a fan-out channel that hangs far longer than the
	// mutation is allowed to take.
	time.Sleep(2 * time.Second)
}

func TestDeleteTaskSucceedsWhenBroadcastChannelIsDown(t *testing.T) {
	repo := newStubTaskRepository()
	filters := newStubFilterStore()
	publisher := &blockedPublisher{published: make(chan struct{})}
	service := NewTaskService(zerolog.Nop(), repo, filters, publisher)
	ctx := context.Background()

	task := &models.Task{UserID: "u1", Name: "Buy milk", Status: models.StatusToDo}
	_ = repo.Create(ctx, task)

	done := make(chan error, 1)
	go func() { done <- service.DeleteTask(ctx, task.ID, "u1") }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("delete failed: %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("delete blocked on the broadcast channel")
	}

	select {
	case <-publisher.published:
	case <-time.After(time.Second):
		t.Fatal("expected the publish attempt to have been dispatched")
	}
}
