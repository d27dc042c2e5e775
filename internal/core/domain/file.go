package domain

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// FileRef is a named, typed, re-openable piece of content.
type FileRef struct {
	Name     string
	Size     int64
	MimeType string

	open func() (io.ReadCloser, error)
}

func NewFileRef(name string, size int64, mimeType string, open func() (io.ReadCloser, error)) FileRef {
	return FileRef{Name: name, Size: size, MimeType: mimeType, open: open}
}

func FileFromBytes(name, mimeType string, data []byte) FileRef {
	return NewFileRef(name, int64(len(data)), mimeType, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

func (f FileRef) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, WrapError(ErrInvalidInput, "open file", fmt.Errorf("%q has no content", f.Name))
	}
	return f.open()
}

func (f FileRef) IsImage() bool {
	return strings.HasPrefix(f.MimeType, "image/")
}

func (f FileRef) IsPDF() bool {
	return f.MimeType == "application/pdf"
}

type FileKind string

const (
	KindImage    FileKind = "image"
	KindPDF      FileKind = "pdf"
	KindDocument FileKind = "document"
)

func KindOf(mimeType string) FileKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case mimeType == "application/pdf":
		return KindPDF
	default:
		return KindDocument
	}
}

type UploadCandidate struct {
	File FileRef
	Kind FileKind
}

func NewUploadCandidate(f FileRef) UploadCandidate {
	return UploadCandidate{File: f, Kind: KindOf(f.MimeType)}
}

// ProcessingInput is either a LocalFile or a StoredDocument.
type ProcessingInput interface {
	processingInput()
}

type LocalFile struct {
	File FileRef
}

type StoredDocument struct {
	DocumentID int64
}

func (LocalFile) processingInput()      {}
func (StoredDocument) processingInput() {}

var ErrStoredDocument = errors.New("processing a stored document is not available")

// PdfPreflight is the local inspection of a PDF done before upload.
type PdfPreflight struct {
	PageCount int
	TextPages int
	Encrypted bool
}
