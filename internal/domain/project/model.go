package project

import "time"

// Project is a home-improvement job that conversations and steps are scoped to.
type Project struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tools       []string  `json:"tools,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectSummary is a lightweight representation for listing
type ProjectSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	StepCount     int       `json:"step_count"`
	TotalMinutes  int       `json:"total_minutes"`
	Conversations int       `json:"conversations"`
	CreatedAt     time.Time `json:"created_at"`
}

// Step is one ordered unit of work in a project plan. Number starts at 1.
type Step struct {
	ProjectID        string   `json:"project_id"`
	Number           int      `json:"number"`
	Title            string   `json:"title"`
	Instructions     string   `json:"instructions,omitempty"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	Tools            []string `json:"tools,omitempty"`
}
