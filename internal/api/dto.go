package api

import (
	"github.com/starford/lagu/internal/itemservice"
	"github.com/starford/lagu/internal/models"
)

// CreateItemRequest is the request body for creating an item.
type CreateItemRequest struct {
	ID               string   `json:"id,omitempty"`
	Title            string   `json:"title" validate:"required"`
	Description      string   `json:"description,omitempty"`
	Content          string   `json:"content,omitempty"`
	Priority         string   `json:"priority,omitempty"`
	Status           string   `json:"status,omitempty"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`
	Datetime         string   `json:"datetime,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Related          []string `json:"related,omitempty"`
	RelatedTasks     []string `json:"related_tasks,omitempty"`
	RelatedDocuments []string `json:"related_documents,omitempty"`
}

func (r CreateItemRequest) params(typeName string) itemservice.CreateParams {
	return itemservice.CreateParams{
		Type:             typeName,
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		Content:          r.Content,
		Priority:         r.Priority,
		Status:           r.Status,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Datetime:         r.Datetime,
		Tags:             r.Tags,
		Related:          r.Related,
		RelatedTasks:     r.RelatedTasks,
		RelatedDocuments: r.RelatedDocuments,
	}
}

// UpdateItemRequest is the request body for a partial update; absent fields
// leave the item unchanged.
type UpdateItemRequest struct {
	Title            *string   `json:"title,omitempty"`
	Description      *string   `json:"description,omitempty"`
	Content          *string   `json:"content,omitempty"`
	Priority         *string   `json:"priority,omitempty"`
	Status           *string   `json:"status,omitempty"`
	StartDate        *string   `json:"start_date,omitempty"`
	EndDate          *string   `json:"end_date,omitempty"`
	Tags             *[]string `json:"tags,omitempty"`
	Related          *[]string `json:"related,omitempty"`
	RelatedTasks     *[]string `json:"related_tasks,omitempty"`
	RelatedDocuments *[]string `json:"related_documents,omitempty"`
}

func (r UpdateItemRequest) params() itemservice.UpdateParams {
	return itemservice.UpdateParams{
		Title:            r.Title,
		Description:      r.Description,
		Content:          r.Content,
		Priority:         r.Priority,
		Status:           r.Status,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Tags:             r.Tags,
		Related:          r.Related,
		RelatedTasks:     r.RelatedTasks,
		RelatedDocuments: r.RelatedDocuments,
	}
}

// ItemListResponse wraps a type listing.
type ItemListResponse struct {
	Items []models.Item `json:"items"`
	Total int           `json:"total"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// CreateTypeRequest registers a custom item type.
type CreateTypeRequest struct {
	Name        string `json:"name" validate:"required"`
	BaseKind    string `json:"base_kind" validate:"required"`
	Description string `json:"description,omitempty"`
}

// StatusRequest creates or updates a workflow status.
type StatusRequest struct {
	Name     string `json:"name" validate:"required"`
	IsClosed bool   `json:"is_closed"`
}

// TagListResponse wraps tag listings.
type TagListResponse struct {
	Tags []models.Tag `json:"tags"`
}
