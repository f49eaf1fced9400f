package api

import "github.com/jcline/jcline/src/internal/domain"

type titleRequest struct {
	Title domain.Title `json:"title"`
}

// Pointers tell a missing value apart from zero.
type progressRequest struct {
	Progress *int `json:"progress" validate:"required,min=0,max=100"`
}

type ratingRequest struct {
	Stars *int `json:"stars" validate:"required,min=0,max=5"`
}
