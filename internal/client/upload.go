package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
)

// Upload is one file part of a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// OpenUpload opens a local file for upload. The caller closes the returned
// file once the request is done.
func OpenUpload(path string) (Upload, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return Upload{}, nil, err
	}
	name := filepath.Base(path)
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return Upload{Name: name, ContentType: ct, Body: f}, f, nil
}

// upload streams fields and files as multipart/form-data. Every file is sent
// under fileField.
func (c *Client) upload(ctx context.Context, path string, fields map[string]string, fileField string, files []Upload, out any) (int, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeParts(mw, fields, fileField, files))
	}()

	status, err := c.do(ctx, http.MethodPost, path, pr, mw.FormDataContentType(), out)
	_ = pr.Close()
	return status, err
}

func writeParts(mw *multipart.Writer, fields map[string]string, fileField string, files []Upload) error {
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	return mw.Close()
}
