package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	// MaxUploadSize caps documents, vouchers and licences
	MaxUploadSize = 10 * 1024 * 1024 // 10MB

	MimeTypePDF  = "application/pdf"
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
)

// FileUpload is a file received from a caller, fully buffered
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the file length in bytes
func (f *FileUpload) Size() int64 {
	return int64(len(f.Data))
}

// Reader returns a fresh reader over the content
func (f *FileUpload) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

// ReadFileHeader buffers a multipart file, refusing anything over maxSize
func ReadFileHeader(fileHeader *multipart.FileHeader, maxSize int64) (*FileUpload, error) {
	if fileHeader.Size > maxSize {
		return nil, ValidationError("file size exceeds maximum allowed size of %dMB", maxSize/(1024*1024))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return &FileUpload{
		Filename:    filepath.Base(fileHeader.Filename),
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// detectMimeType sniffs the content. Only the three accepted types are recognized.
func detectMimeType(data []byte) string {
	// PDF files start with %PDF
	if len(data) >= 4 && string(data[0:4]) == "%PDF" {
		return MimeTypePDF
	}
	switch http.DetectContentType(data) {
	case MimeTypeJPEG:
		return MimeTypeJPEG
	case MimeTypePNG:
		return MimeTypePNG
	}
	return ""
}

// ValidateDocumentUpload accepts PDF, JPEG or PNG content within maxSize and
// returns the sniffed content type. Extension and declared type are not trusted.
func ValidateDocumentUpload(f *FileUpload, maxSize int64) (string, error) {
	if f == nil || len(f.Data) == 0 {
		return "", ValidationError("file is empty")
	}
	if f.Size() > maxSize {
		return "", ValidationError("file size exceeds maximum allowed size of %dMB", maxSize/(1024*1024))
	}

	mimeType := detectMimeType(f.Data)
	if mimeType == "" {
		return "", ValidationError("file type not allowed. Accepted formats: PDF, JPG, PNG")
	}
	return mimeType, nil
}

// ValidatePDFUpload checks a licence file. A missing or non-PDF file violates the
// issuance guard rather than being malformed input.
func ValidatePDFUpload(f *FileUpload, maxSize int64) error {
	if f == nil || len(f.Data) == 0 {
		return InvalidStateError("licence file is required")
	}
	if f.Size() > maxSize {
		return ValidationError("file size exceeds maximum allowed size of %dMB", maxSize/(1024*1024))
	}
	if detectMimeType(f.Data) != MimeTypePDF {
		return InvalidStateError("licence must be a PDF file")
	}
	if ext := strings.ToLower(filepath.Ext(f.Filename)); ext != "" && ext != ".pdf" {
		return InvalidStateError("licence must be a PDF file")
	}
	return nil
}

// extensionFor picks a file extension for the stored object
func extensionFor(mimeType, filename string) string {
	switch mimeType {
	case MimeTypePDF:
		return ".pdf"
	case MimeTypeJPEG:
		return ".jpg"
	case MimeTypePNG:
		return ".png"
	}
	return strings.ToLower(filepath.Ext(filename))
}
