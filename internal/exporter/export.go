package exporter

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"strings"

	"kuberdash/pkg/contracts/domain"
)

// Export writes t to w in the requested format
func Export(w io.Writer, t *domain.Table, format Format) error {
	switch format {
	case FormatCSV:
		return NewCSVWriter(nil, nil).Write(w, t, WriteOptions{})
	case FormatExcel:
		return WriteExcel(w, t)
	}
	return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
}

// DownloadLink renders t as an HTML anchor whose href embeds the exported
// file as a base64 data URI
func DownloadLink(t *domain.Table, filename string, format Format) (string, error) {
	var buf bytes.Buffer
	if err := Export(&buf, t, format); err != nil {
		return "", err
	}

	payload := base64.StdEncoding.EncodeToString(buf.Bytes())
	return fmt.Sprintf(`<a href="data:%s;base64,%s" download="%s">Download %s file</a>`,
		format.linkMime(),
		payload,
		html.EscapeString(format.Filename(filename)),
		strings.ToUpper(string(format)),
	), nil
}
