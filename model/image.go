package model

// ImageUpload is an in-memory image read out of a multipart request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}
