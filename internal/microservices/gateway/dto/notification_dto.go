package dto

type ListNotificationsQuery struct {
	Page int   `form:"page,default=1" binding:"omitempty,min=1"`
	Size int   `form:"size,default=10" binding:"omitempty,min=1,max=100"`
	Read *bool `form:"read"`
}

type MarkAsReadRequest struct {
	NotificationIDs []string `json:"notificationIds"`
}
