package web

import (
	"fmt"
	"io"
	"net/http"
)

// responseSink streams a generated file to the client as an attachment.
type responseSink struct {
	w      http.ResponseWriter
	status int
}

func (d responseSink) Download(content, filename string) error {
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	d.w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	d.w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	d.w.WriteHeader(status)
	_, err := io.WriteString(d.w, content)
	return err
}
