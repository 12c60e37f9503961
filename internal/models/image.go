package models

// ImageFile is an uploaded image as received from a client. The ledger only
// looks at Name; the rest is kept so the image can be served back.
type ImageFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}
