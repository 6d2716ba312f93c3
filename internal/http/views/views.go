// Package views embeds the HTML templates of the back-office pages.
package views

import (
	"embed"
	"net/http"

	html "github.com/gofiber/template/html/v2"
)

//go:embed *.html
var files embed.FS

// Engine returns a template engine over the embedded files.
func Engine() *html.Engine {
	return html.NewFileSystem(http.FS(files), ".html")
}
