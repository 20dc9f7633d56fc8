package model

import "time"

// Attachment is an uploaded proof photo. Its bytes live either inline in Data
// or in object storage under ObjectKey.
type Attachment struct {
	ID         string
	UploaderID string
	MIME       string
	Data       []byte
	ObjectKey  string
	CreatedAt  time.Time
}
