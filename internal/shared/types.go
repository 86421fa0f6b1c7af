package shared

// shared types across the services
// 1st: sanitized user shape returned by the auth service and embedded in
//      task/comment responses
// 2nd: pagination metadata for list replies
// 3rd: add more shared types as needed

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPageMeta derives TotalPages from the total row count
func NewPageMeta(page, size int, total int64) PageMeta {
	pages := int(total) / size
	if int(total)%size != 0 {
		pages++
	}
	return PageMeta{Page: page, Size: size, Total: total, TotalPages: pages}
}
