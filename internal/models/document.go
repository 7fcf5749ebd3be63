package models

import "time"

// DocumentStatus is the per-worker processing record kept in Firestore.
// The document ID of the Firestore record is the message's document_id, so
// repeated deliveries overwrite the same record instead of creating new ones.
type DocumentStatus struct {
	DocumentID   string    `firestore:"documentId,omitempty"`
	Worker       string    `firestore:"worker,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	TextRef      string    `firestore:"textReference,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty"`
}

// DocumentKind is the result of classifying an input file.
type DocumentKind int

const (
	KindUnsupported DocumentKind = iota
	KindImage
	KindPDF
)

func (k DocumentKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	default:
		return "unsupported"
	}
}

// PageUnit is one page's raster bytes tagged with its 1-based position.
type PageUnit struct {
	Index int
	Data  []byte
}

// ExtractionResult is the recognized text of a single page.
type ExtractionResult struct {
	Index int
	Text  string
}
