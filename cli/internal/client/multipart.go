// ABOUTME: Multipart request bodies for uploads through the gateway
// ABOUTME: Parts are written in the order they were added

package client

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
)

// Multipart is an ordered form body with plain fields and files.
type Multipart struct {
	parts []mpPart
}

type mpPart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// NewMultipart creates an empty form.
func NewMultipart() *Multipart {
	return &Multipart{}
}

// AddField appends a plain value.
func (m *Multipart) AddField(name, value string) *Multipart {
	m.parts = append(m.parts, mpPart{field: name, data: []byte(value)})
	return m
}

// AddFile appends file content under field.
func (m *Multipart) AddFile(field, filename, contentType string, data []byte) *Multipart {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	m.parts = append(m.parts, mpPart{field: field, filename: filename, contentType: contentType, data: data})
	return m
}

// AddFilePath reads path from disk and appends it under field.
func (m *Multipart) AddFilePath(field, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	m.AddFile(field, filepath.Base(path), "", data)
	return nil
}

// Len returns the number of parts.
func (m *Multipart) Len() int {
	return len(m.parts)
}

func (m *Multipart) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range m.parts {
		var (
			pw  io.Writer
			err error
		)
		if p.filename == "" {
			pw, err = w.CreateFormField(p.field)
		} else {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", multipart.FileContentDisposition(p.field, p.filename))
			h.Set("Content-Type", p.contentType)
			pw, err = w.CreatePart(h)
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode form field %s: %w", p.field, err)
		}
		if _, err := pw.Write(p.data); err != nil {
			return nil, "", fmt.Errorf("failed to encode form field %s: %w", p.field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to encode form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
