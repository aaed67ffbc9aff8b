package handler

import "strings"

var markdownMarkers = strings.NewReplacer("*", "", "_", "", "`", "")

// PlainText strips the Markdown emphasis and code markers an answer may
// carry, for transports that cannot render them.
func PlainText(answer string) string {
	return markdownMarkers.Replace(answer)
}
