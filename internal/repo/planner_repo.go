package repo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prepdesk/server/internal/errcode"
	"github.com/prepdesk/server/internal/model"
	"github.com/prepdesk/server/internal/store"
)

// PlannerRepo defines live-subscribed CRUD over a per-user task list
type PlannerRepo interface {
	// Subscribe opens a live view over the user's tasks ordered by created
	// timestamp descending. Each change delivers the full current snapshot.
	Subscribe(userID string) *TaskSubscription

	// Tasks returns the current snapshot without subscribing.
	Tasks(ctx context.Context, userID string) ([]model.Task, error)

	Add(ctx context.Context, userID string, fields map[string]interface{}) (string, error)
	Update(ctx context.Context, userID, taskID string, updates map[string]interface{}) error
	Delete(ctx context.Context, userID, taskID string) error
}

// TaskSubscription is a cancellable stream of task list snapshots.
// Snapshots preserves delivery order and never coalesces; Cancel is
// idempotent and must be called to release the underlying listener.
type TaskSubscription struct {
	snapshots chan []model.Task
	errs      chan error

	mu     sync.Mutex
	queue  [][]model.Task
	errq   []error
	closed bool
	wake   chan struct{}
	done   chan struct{}
	cancel func()
	once   sync.Once
}

// Snapshots returns the channel of full ordered task snapshots.
func (s *TaskSubscription) Snapshots() <-chan []model.Task { return s.snapshots }

// Errs returns the channel of stream errors. The stream does not auto-retry
// after an error.
func (s *TaskSubscription) Errs() <-chan error { return s.errs }

// Cancel releases the listener and closes both channels. Calling it more
// than once is a no-op.
func (s *TaskSubscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *TaskSubscription) push(tasks []model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, tasks)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *TaskSubscription) pushErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.errq = append(s.errq, err)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump drains the internal queue into the consumer-facing channels so a
// slow consumer never blocks the store's change delivery. Delivery order is
// preserved and snapshots are never coalesced.
func (s *TaskSubscription) pump() {
	defer func() {
		close(s.snapshots)
		close(s.errs)
	}()

	for {
		s.mu.Lock()
		var snapshot []model.Task
		var err error
		var haveSnap, haveErr bool
		if len(s.queue) > 0 {
			snapshot, s.queue = s.queue[0], s.queue[1:]
			haveSnap = true
		} else if len(s.errq) > 0 {
			err, s.errq = s.errq[0], s.errq[1:]
			haveErr = true
		} else if s.closed {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		switch {
		case haveSnap:
			select {
			case s.snapshots <- snapshot:
			case <-s.done:
				return
			}
		case haveErr:
			select {
			case s.errs <- err:
			case <-s.done:
				return
			}
		default:
			select {
			case <-s.wake:
			case <-s.done:
			}
		}
	}
}

type plannerRepo struct {
	store store.DocumentStore
	log   *zap.Logger
}

// NewPlannerRepo creates a new PlannerRepo instance
func NewPlannerRepo(s store.DocumentStore, log *zap.Logger) PlannerRepo {
	return &plannerRepo{store: s, log: log}
}

func taskCollection(userID string) string {
	return "planner/" + userID + "/tasks"
}

// Subscribe opens the live query and starts the snapshot pump.
func (r *plannerRepo) Subscribe(userID string) *TaskSubscription {
	sub := &TaskSubscription{
		snapshots: make(chan []model.Task),
		errs:      make(chan error, 1),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	sub.cancel = r.store.Subscribe(taskCollection(userID),
		[]store.QueryOption{store.OrderBy("createdAt", true)},
		func(docs []store.Document) { sub.push(tasksFromDocs(userID, docs)) },
		func(err error) { sub.pushErr(err) },
	)

	go sub.pump()
	return sub
}

// Tasks returns the user's tasks ordered by created timestamp descending.
func (r *plannerRepo) Tasks(ctx context.Context, userID string) ([]model.Task, error) {
	docs, err := r.store.Query(ctx, taskCollection(userID), store.OrderBy("createdAt", true))
	if err != nil {
		return nil, errcode.NewDataError("unavailable", err.Error())
	}
	return tasksFromDocs(userID, docs), nil
}

// Add writes a new task with identity id and server-assigned timestamps,
// returning the new document id.
func (r *plannerRepo) Add(ctx context.Context, userID string, fields map[string]interface{}) (string, error) {
	id := uuid.NewString()

	doc := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		doc[k] = v
	}
	doc["userId"] = userID
	doc["createdAt"] = store.ServerTimestamp
	doc["updatedAt"] = store.ServerTimestamp

	if err := r.store.Set(ctx, taskCollection(userID)+"/"+id, doc); err != nil {
		return "", errcode.NewDataError("unavailable", err.Error())
	}
	return id, nil
}

// Update merges partial fields and reassigns only the update timestamp.
func (r *plannerRepo) Update(ctx context.Context, userID, taskID string, updates map[string]interface{}) error {
	fields := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		fields[k] = v
	}
	fields["updatedAt"] = store.ServerTimestamp

	if err := r.store.Update(ctx, taskCollection(userID)+"/"+taskID, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errcode.NewDataError("not-found", err.Error())
		}
		return errcode.NewDataError("unavailable", err.Error())
	}
	return nil
}

// Delete removes the task. Deleting an already-absent task succeeds.
func (r *plannerRepo) Delete(ctx context.Context, userID, taskID string) error {
	if err := r.store.Delete(ctx, taskCollection(userID)+"/"+taskID); err != nil {
		return errcode.NewDataError("unavailable", err.Error())
	}
	return nil
}

func tasksFromDocs(userID string, docs []store.Document) []model.Task {
	tasks := make([]model.Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, taskFromDoc(userID, doc))
	}
	return tasks
}

func taskFromDoc(userID string, doc store.Document) model.Task {
	task := model.Task{ID: doc.ID, UserID: userID, Fields: make(map[string]interface{})}
	for k, v := range doc.Fields {
		switch k {
		case "userId":
		case "createdAt":
			task.CreatedAt = timeField(v)
		case "updatedAt":
			task.UpdatedAt = timeField(v)
		default:
			task.Fields[k] = v
		}
	}
	return task
}

// timeField tolerates both native time values and their JSON string form.
func timeField(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	case json.Number:
		// not produced by either store; ignore
	}
	return time.Time{}
}
