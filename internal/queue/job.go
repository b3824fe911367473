package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeBoothEmbedding embeds one catalog booth and stores the vector
	JobTypeBoothEmbedding JobType = "booth_embedding"
)

// DefaultMaxRetries bounds requeues of a rate-limited or failing job.
const DefaultMaxRetries = 5

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	BoothID    string         `json:"booth_id"`
	NotBefore  *time.Time     `json:"not_before,omitempty"` // earliest processing time, nil = immediate
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // latest processing time, nil = no expiration
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, boothID string) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		BoothID:    boothID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewBoothEmbeddingJob creates an embedding job that becomes ready at notBefore.
// A zero notBefore means immediately.
func NewBoothEmbeddingJob(boothID string, notBefore time.Time) *Job {
	job := NewJob(JobTypeBoothEmbedding, boothID)
	if !notBefore.IsZero() {
		job.NotBefore = &notBefore
	}
	return job
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	return !j.IsExpired()
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// Delayed returns a copy of the job with one more retry, ready at notBefore.
func (j *Job) Delayed(notBefore time.Time) *Job {
	next := *j
	next.NotBefore = &notBefore
	next.RetryCount = j.RetryCount + 1
	return &next
}
