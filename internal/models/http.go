// Package models defines the request and response data structures used
// for communication between clients and the breed ledger service.
package models

import "github.com/atinyakov/dogify/internal/storage"

// ClassifyRequest asks for a breed preview of a file name.
type ClassifyRequest struct {
	// FileName is the name of the image file, extension included.
	FileName string `json:"file_name"`
}

// ClassifyResponse is the preview result. Breed and Confidence are empty
// when Identified is false.
type ClassifyResponse struct {
	Identified bool    `json:"identified"`
	Breed      string  `json:"breed,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ErrorResponse carries a user-facing message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ImagesResponse lists the records of the current user.
type ImagesResponse []storage.ClassificationRecord

// Stats summarises the durable set.
type Stats struct {
	// Records is the number of stored classification records.
	Records int `json:"records"`

	// Owners is the number of distinct users owning at least one record.
	Owners int `json:"owners"`

	// Breeds counts records per breed label.
	Breeds map[string]int `json:"breeds"`
}
