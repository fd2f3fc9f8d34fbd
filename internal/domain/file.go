package domain

import "encoding/base64"

// TransferFile is an in-memory representation of an uploaded file suitable
// for inclusion in a model request. Immutable once created.
type TransferFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// Base64 returns the payload encoded for transport.
func (f *TransferFile) Base64() string {
	return base64.StdEncoding.EncodeToString(f.Data)
}
