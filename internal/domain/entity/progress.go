package entity

import "time"

// ProgressStep 进度日志条目，按时间追加
type ProgressStep struct {
	Step      string    `json:"step"`
	Message   string    `json:"message"`
	Percent   int       `json:"percent"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressSnapshot 某一时刻的任务进度快照
type ProgressSnapshot struct {
	JobID           string         `json:"job_id"`
	Status          JobStatus      `json:"status"`
	OverallProgress int            `json:"overall_progress"`
	CurrentStep     string         `json:"current_step"`
	Steps           []ProgressStep `json:"steps"`
	FinalWordCount  int            `json:"final_word_count,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
