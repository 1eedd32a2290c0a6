package model

import "github.com/google/uuid"

type Category string

const (
	CategoryPhoto    Category = "PHOTO"
	CategoryVideo    Category = "VIDEO"
	CategoryDocument Category = "DOCUMENT"
)

type Destination struct {
	ChatID string
	Token  string
}

type UploadTask struct {
	ID          string
	Path        string
	Destination Destination
}

func NewUploadTask(path string, dst Destination) UploadTask {
	return UploadTask{
		ID:          uuid.NewString(),
		Path:        path,
		Destination: dst,
	}
}

// Attachment is a file held in memory for delivery.
type Attachment struct {
	Name string
	Data []byte
}
