package model

import "time"

// Review represents the database model for guest reviews
type Review struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Country   string    `gorm:"type:varchar(100)"`
	Comment   string    `gorm:"type:text;not null"`
	Rating    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index"`
}

// TableName sets the table name for GORM
func (Review) TableName() string {
	return "reviews"
}

// ReviewFilter represents pagination for review queries
type ReviewFilter struct {
	Limit  int
	Offset int
}

// CreateReviewRequest represents the API request to leave a review
type CreateReviewRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	Country string `json:"country" binding:"max=100"`
	Comment string `json:"comment" binding:"required,max=5000"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
}

// ReviewResponse represents a review returned by the API
type ReviewResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country,omitempty"`
	Comment   string    `json:"comment"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToReviewResponse converts a Review entity to its API representation
func (r *Review) ToReviewResponse() ReviewResponse {
	return ReviewResponse{
		ID:        r.ID,
		Name:      r.Name,
		Country:   r.Country,
		Comment:   r.Comment,
		Rating:    r.Rating,
		CreatedAt: r.CreatedAt,
	}
}
