// Package views renders the HTML pages of the preview UI. Pages are templ
// components; the *_templ.go files are generated from the .templ sources
// with `templ generate`.
package views

import (
	"fmt"
	"strconv"

	"github.com/JonMunkholm/piipreview/internal/pii"
	"github.com/a-h/templ"
)

// UploadParams is everything the upload page shows.
type UploadParams struct {
	Files     []pii.File
	Busy      bool
	CanSubmit bool
	MaxSize   int64
	// Alert, when set, is shown as a blocking dialog over the page.
	Alert *pii.UserMessage
}

// FormatSize renders a byte count for display.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func removeURL(i int) templ.SafeURL {
	return templ.SafeURL("/files/" + strconv.Itoa(i) + "/remove")
}

func rowCount(n int) string {
	if n == 1 {
		return "1 row"
	}
	return strconv.Itoa(n) + " rows"
}
