package dto

import "time"

type CreateTaskRequest struct {
	Title           string     `json:"title" binding:"required"`
	Description     string     `json:"description"`
	Priority        string     `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Deadline        *time.Time `json:"deadline"`
	AssignedUserIDs []string   `json:"assignedUserIds"`
}

type UpdateTaskRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Status          *string    `json:"status" binding:"omitempty,oneof=TODO IN_PROGRESS REVIEW DONE"`
	Priority        *string    `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Deadline        *time.Time `json:"deadline"`
	AssignedUserIDs []string   `json:"assignedUserIds"`
}

type ListTasksQuery struct {
	Status     string `form:"status" binding:"omitempty,oneof=TODO IN_PROGRESS REVIEW DONE"`
	Priority   string `form:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AssignedTo string `form:"assignedTo"`
	Search     string `form:"search"`
	Page       int    `form:"page,default=1" binding:"omitempty,min=1"`
	Size       int    `form:"size,default=10" binding:"omitempty,min=1,max=100"`
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}
