// Package types provides type definitions for structured data used throughout the env-validator system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"github.com/go-playground/validator/v10"
)

// TaskStatus is the state of an asynchronous environment validation task as
// reported by the Management API.
type TaskStatus string

// Known task statuses. The service may report values not listed here.
const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusFinished   TaskStatus = "finished"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsFinished reports whether the task completed successfully.
func (s TaskStatus) IsFinished() bool {
	return s == TaskStatusFinished
}

// IsFailed reports whether the task ended in failure.
func (s TaskStatus) IsFailed() bool {
	return s == TaskStatusFailed
}

// IsTerminal reports whether polling can stop. Unrecognised values are
// treated as still running.
func (s TaskStatus) IsTerminal() bool {
	return s.IsFinished() || s.IsFailed()
}

// IsKnown reports whether the status is one of the documented values.
func (s TaskStatus) IsKnown() bool {
	switch s {
	case TaskStatusQueued, TaskStatusProcessing, TaskStatusPending, TaskStatusFinished, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// ValidationTask is the handle returned when a validation is started or checked.
type ValidationTask struct {
	ID     string     `json:"id" validate:"required"`
	Status TaskStatus `json:"status"`
}

// Validate validates the ValidationTask using the validator.
func (t *ValidationTask) Validate() error {
	validate := validator.New()
	return validate.Struct(t)
}

// Reference identifies an object (item, language, element, type) by id, name and codename.
type Reference struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Codename string `json:"codename,omitempty"`
}

// Issue is a single element-level problem with one or more messages.
type Issue struct {
	Element  Reference `json:"element"`
	Messages []string  `json:"messages"`
}

// ValidationItem groups the issues found for one content item variant
// (or one content type, for type-level issues).
type ValidationItem struct {
	IssueType string     `json:"issue_type"`
	Item      Reference  `json:"item"`
	Language  Reference  `json:"language"`
	Type      *Reference `json:"type,omitempty"`
	Issues    []Issue    `json:"issues"`
}

// EnvironmentInfo describes the project environment the API key belongs to.
type EnvironmentInfo struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name"`
	Environment string `json:"environment"`
}

// Validate validates the EnvironmentInfo using the validator.
func (e *EnvironmentInfo) Validate() error {
	validate := validator.New()
	return validate.Struct(e)
}

// CountIssues returns the total number of issues across all items.
func CountIssues(items []ValidationItem) int {
	count := 0
	for _, item := range items {
		count += len(item.Issues)
	}
	return count
}
