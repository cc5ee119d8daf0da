package domain

import "encoding/base64"

// Image is an encoded generated image.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURI renders the image the way browsers expect it in an <img> tag.
func (i Image) DataURI() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Empty reports whether the image carries no bytes.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}
