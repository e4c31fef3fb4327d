package domain

// ReferenceImage is the uploaded style reference held by a session.
type ReferenceImage struct {
	Name          string
	MIMEType      string
	Raw           []byte
	PreviewHandle string
	// Payload is the data URI form of Raw.
	Payload string
}

// Size returns the raw byte length of the image.
func (img *ReferenceImage) Size() int {
	if img == nil {
		return 0
	}
	return len(img.Raw)
}
