package domain

// RawDocument represents uploaded bytes before normalisation.
type RawDocument struct {
	// Owner is the user or tenant uploading the document.
	Owner string

	// Name is the file name or title supplied with the upload.
	Name string

	// MIMEType is the content type (e.g., "text/html").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}
