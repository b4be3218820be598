package dto

// ListResponse wraps a page of results
type ListResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page,omitempty"`
	PageSize int   `json:"pageSize,omitempty"`
}

// NewList wraps items that were not paginated
func NewList[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: int64(len(items))}
}

// AddTagRequest attaches a tag to a contact by name, creating it when missing
type AddTagRequest struct {
	Name string `json:"name" binding:"required"`
}

// PreviewResponse carries a rendered message text
type PreviewResponse struct {
	Text string `json:"text"`
}
