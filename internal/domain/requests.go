package domain

// ScheduleRequest is the payload for the schedule entry point, carrying the
// task as the task CRUD layer sees it.
type ScheduleRequest struct {
	Task Task `json:"task" binding:"required"`
}

// GetNotificationsRequest carries listing filters for the ops endpoint
type GetNotificationsRequest struct {
	TaskID   string             `form:"task_id"`
	Status   NotificationStatus `form:"status"`
	Type     NotificationType   `form:"type"`
	Page     int                `form:"page"`
	PageSize int                `form:"page_size"`
}

// SweepResponse is returned by the sweep trigger endpoint
type SweepResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
