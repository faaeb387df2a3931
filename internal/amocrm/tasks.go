package amocrm

import (
	"context"
	"net/http"
)

type tasksEnvelope struct {
	Embedded struct {
		Tasks []Task `json:"tasks"`
	} `json:"_embedded"`
}

// CreateTask creates a single task.
func (s *Session) CreateTask(ctx context.Context, task Task) (Task, error) {
	var envelope tasksEnvelope
	if err := s.do(ctx, http.MethodPost, "/api/v4/tasks", []Task{task}, &envelope); err != nil {
		return Task{}, err
	}
	if len(envelope.Embedded.Tasks) > 0 {
		task.ID = envelope.Embedded.Tasks[0].ID
	}
	return task, nil
}
