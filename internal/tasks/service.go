package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/metrics"
	"gitea.jw6.us/james/teamtasks/internal/storage"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

var (
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")
	ErrEmptyComment    = errors.New("comment is empty")
)

// NewTask is the input of Create. A zero DueDate or nil AssignedTo counts as
// missing.
type NewTask struct {
	Title       string
	Description string
	AssignedTo  *uuid.UUID
	Priority    store.Priority
	DueDate     time.Time
}

// Upload is a file staged for upload alongside a task.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Notifier is told about tasks that land on someone's list.
type Notifier interface {
	TaskAssigned(ctx context.Context, task store.Task)
}

// Detail is a task with its attachments and comments.
type Detail struct {
	Task        store.Task             `json:"task"`
	Attachments []store.TaskAttachment `json:"attachments"`
	Comments    []store.TaskComment    `json:"comments"`
}

type Service struct {
	store    *store.Store
	objects  storage.ObjectStore
	notifier Notifier
}

func NewService(s *store.Store, objects storage.ObjectStore, notifier Notifier) *Service {
	return &Service{store: s, objects: objects, notifier: notifier}
}

// Create inserts a task and then uploads the staged files one by one.
//
// When the title, due date or assignee is missing nothing is written and
// Create returns (nil, nil). A failed upload or attachment insert is logged
// and skipped; the task and the remaining uploads are kept.
func (s *Service) Create(ctx context.Context, creator uuid.UUID, in NewTask, files []Upload) (*store.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.DueDate.IsZero() || in.AssignedTo == nil {
		return nil, nil
	}
	priority := in.Priority
	if priority == "" {
		priority = store.PriorityMedium
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	task, err := s.store.Tasks.Create(ctx, store.Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		AssignedTo:  in.AssignedTo,
		CreatedBy:   creator,
		Priority:    priority,
		DueDate:     civil(in.DueDate),
		Status:      store.StatusNotStarted,
	})
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if _, err := s.attach(ctx, creator, task.ID, f); err != nil {
			log.Printf("[WARN] task %s: skipping attachment %q: %v", task.ID, f.Name, err)
		}
	}

	if s.notifier != nil && task.AssignedTo != nil && *task.AssignedTo != creator {
		s.notifier.TaskAssigned(ctx, *task)
	}
	return task, nil
}

// AddAttachment uploads one file to an existing task the caller can see.
func (s *Service) AddAttachment(ctx context.Context, actor, taskID uuid.UUID, f Upload) (*store.TaskAttachment, error) {
	if _, err := s.store.Tasks.GetVisible(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.attach(ctx, actor, taskID, f)
}

func (s *Service) attach(ctx context.Context, uploader, taskID uuid.UUID, f Upload) (*store.TaskAttachment, error) {
	key := storage.RandomKey(taskID.String(), f.Name)
	url, err := s.objects.Put(ctx, key, f.ContentType, f.Body)
	if err != nil {
		metrics.ObserveAttachmentUpload(false)
		return nil, fmt.Errorf("upload: %w", err)
	}
	metrics.ObserveAttachmentUpload(true)

	att, err := s.store.Attachments.Create(ctx, store.TaskAttachment{
		TaskID:     taskID,
		FileName:   f.Name,
		FileURL:    url,
		FileType:   f.ContentType,
		FileSize:   f.Size,
		ObjectKey:  key,
		UploadedBy: &uploader,
	})
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return att, nil
}

// Created lists the tasks the user created (Dashboard).
func (s *Service) Created(ctx context.Context, userID uuid.UUID) ([]store.Task, error) {
	return s.store.Tasks.ListCreatedBy(ctx, userID)
}

// Assigned lists the tasks assigned to the user (My Tasks).
func (s *Service) Assigned(ctx context.Context, userID uuid.UUID) ([]store.Task, error) {
	return s.store.Tasks.ListAssignedTo(ctx, userID)
}

func (s *Service) Detail(ctx context.Context, viewer, taskID uuid.UUID) (*Detail, error) {
	task, err := s.store.Tasks.GetVisible(ctx, viewer, taskID)
	if err != nil {
		return nil, err
	}
	atts, err := s.store.Attachments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &Detail{Task: *task, Attachments: atts, Comments: comments}, nil
}

func (s *Service) UpdateStatus(ctx context.Context, actor, taskID uuid.UUID, status store.Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	return s.store.Tasks.UpdateStatus(ctx, actor, taskID, status)
}

// Delete removes a task the actor created. Attachment and comment rows
// cascade; stored objects are removed afterwards on a best-effort basis.
func (s *Service) Delete(ctx context.Context, actor, taskID uuid.UUID) error {
	task, err := s.store.Tasks.GetVisible(ctx, actor, taskID)
	if err != nil {
		return err
	}
	if task.CreatedBy != actor {
		return store.ErrNotFound
	}
	atts, err := s.store.Attachments.ListByTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.store.Tasks.Delete(ctx, actor, taskID); err != nil {
		return err
	}
	for _, a := range atts {
		if err := s.objects.Delete(ctx, a.ObjectKey); err != nil {
			log.Printf("[WARN] task %s: delete object %s: %v", taskID, a.ObjectKey, err)
		}
	}
	return nil
}

func (s *Service) AddComment(ctx context.Context, actor, taskID uuid.UUID, text string) (*store.TaskComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	if _, err := s.store.Tasks.GetVisible(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.store.Comments.Create(ctx, store.TaskComment{TaskID: taskID, UserID: &actor, Comment: text})
}
