// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationQueueName is the durable queue carrying supervisor
// notification events to the Slack relay.
const NotificationQueueName = "supervisor.notifications"

// Notification event kinds.
const (
	KindStopScore      = "stop_score"
	KindSystemHealth   = "system_health"
	KindTaskCompletion = "task_completion"
	KindCustom         = "custom"
)

// NotificationEvent is published when the supervisor wants a Slack
// message sent. Exactly one of the payload sections is set, selected
// by Kind, so the consumer never has to guess the shape.
type NotificationEvent struct {
	Kind     string `json:"kind"`
	TaskName string `json:"task_name,omitempty"`
	SystemID string `json:"system_id,omitempty"`
	TaskID   string `json:"task_id,omitempty"`

	StopScore *StopScorePayload      `json:"stop_score,omitempty"`
	Health    *SystemHealthPayload   `json:"health,omitempty"`
	Proposal  *TaskCompletionPayload `json:"proposal,omitempty"`
	Custom    *CustomPayload         `json:"custom,omitempty"`

	Context   string `json:"context,omitempty"`
	CreatedAt string `json:"created_at"`
}

// StopScorePayload mirrors the audit verdict for one task.
type StopScorePayload struct {
	Score        int      `json:"score"`
	Severity     string   `json:"severity"`
	StopRequired bool     `json:"stop_required"`
	Reasons      []string `json:"reasons"`
}

// SystemHealthPayload is a snapshot of one supervised system.
type SystemHealthPayload struct {
	Status      string  `json:"status"`
	StopRate    float64 `json:"stop_rate"`
	QueueDepth  int     `json:"queue_depth"`
	ActiveTasks int     `json:"active_tasks"`
}

// TaskCompletionPayload is the closing status proposal for a task.
type TaskCompletionPayload struct {
	Status    string   `json:"status"`
	Risks     []string `json:"risks"`
	Gaps      []string `json:"gaps"`
	NextSteps []string `json:"next_steps"`
	Evidence  int      `json:"evidence"`
}

// CustomPayload is a free-form supervisor message.
type CustomPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"` // info, success, warning, error
}
