package storage

import "time"

// ClassificationRecord is one analysed upload. Records are never edited
// after creation; they are only appended or removed.
type ClassificationRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ImageURL   string    `json:"image_url"`
	Breed      string    `json:"breed"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}
