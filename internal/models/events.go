package models

// StorageObjectEvent is the data of a Cloud Storage "object finalized"
// CloudEvent.
type StorageObjectEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}
