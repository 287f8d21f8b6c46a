package models

import "time"

type PortfolioItem struct {
	ID          string    `json:"id"`
	ProjectName string    `json:"projectName" validate:"required"`
	Category    string    `json:"category" validate:"required"`
	Description string    `json:"description" validate:"required,max=1000"`
	ProjectLink string    `json:"projectLink" validate:"required"`
	ImageURL    string    `json:"imageUrl"`
	ImageKey    string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

type UpdatePortfolioRequest struct {
	ProjectName *string `json:"projectName,omitempty"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	ProjectLink *string `json:"projectLink,omitempty"`
}
