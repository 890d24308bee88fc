package services

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMockFileHeader(filename string, content []byte, contentType string) *multipart.FileHeader {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, _ := writer.CreatePart(header)
	part.Write(content)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, _ := reader.ReadForm(32 * 1024 * 1024)
	return form.File["file"][0]
}

func TestReadFileHeader(t *testing.T) {
	content := append([]byte("%PDF-1.4\n"), make([]byte, 100)...)

	t.Run("Buffers the file", func(t *testing.T) {
		fh := createMockFileHeader("fue.pdf", content, MimeTypePDF)
		f, err := ReadFileHeader(fh, MaxUploadSize)
		require.NoError(t, err)
		assert.Equal(t, "fue.pdf", f.Filename)
		assert.Equal(t, MimeTypePDF, f.ContentType)
		assert.Equal(t, int64(len(content)), f.Size())
	})

	t.Run("Refuses oversized files", func(t *testing.T) {
		fh := createMockFileHeader("fue.pdf", content, MimeTypePDF)
		_, err := ReadFileHeader(fh, 16)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestValidateDocumentUpload(t *testing.T) {
	t.Run("Valid PDF", func(t *testing.T) {
		mimeType, err := ValidateDocumentUpload(pdfFile("test.pdf"), MaxUploadSize)
		assert.NoError(t, err)
		assert.Equal(t, MimeTypePDF, mimeType)
	})

	t.Run("Valid PNG", func(t *testing.T) {
		mimeType, err := ValidateDocumentUpload(pngFile("test.png"), MaxUploadSize)
		assert.NoError(t, err)
		assert.Equal(t, MimeTypePNG, mimeType)
	})

	t.Run("Valid JPEG", func(t *testing.T) {
		f := &FileUpload{Filename: "foto.jpg", Data: append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 100)...)}
		mimeType, err := ValidateDocumentUpload(f, MaxUploadSize)
		assert.NoError(t, err)
		assert.Equal(t, MimeTypeJPEG, mimeType)
	})

	t.Run("Content wins over the declared type", func(t *testing.T) {
		f := &FileUpload{Filename: "plano.pdf", ContentType: MimeTypePDF, Data: []byte("PK\x03\x04 not a pdf")}
		_, err := ValidateDocumentUpload(f, MaxUploadSize)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("File too large", func(t *testing.T) {
		_, err := ValidateDocumentUpload(pdfFile("large.pdf"), 10)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "exceeds maximum")
	})

	t.Run("Empty file", func(t *testing.T) {
		_, err := ValidateDocumentUpload(&FileUpload{Filename: "empty.pdf"}, MaxUploadSize)
		assert.ErrorIs(t, err, ErrValidation)

		_, err = ValidateDocumentUpload(nil, MaxUploadSize)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestValidatePDFUpload(t *testing.T) {
	assert.NoError(t, ValidatePDFUpload(pdfFile("licencia.pdf"), MaxUploadSize))
	assert.ErrorIs(t, ValidatePDFUpload(nil, MaxUploadSize), ErrInvalidState)
	assert.ErrorIs(t, ValidatePDFUpload(pngFile("licencia.png"), MaxUploadSize), ErrInvalidState)
	assert.ErrorIs(t, ValidatePDFUpload(pdfFile("licencia.docx"), MaxUploadSize), ErrInvalidState)
	assert.ErrorIs(t, ValidatePDFUpload(pdfFile("licencia.pdf"), 10), ErrValidation)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".pdf", extensionFor(MimeTypePDF, "x"))
	assert.Equal(t, ".jpg", extensionFor(MimeTypeJPEG, "foto.jpeg"))
	assert.Equal(t, ".png", extensionFor(MimeTypePNG, "x"))
	assert.Equal(t, ".tif", extensionFor("image/tiff", "scan.TIF"))
}
