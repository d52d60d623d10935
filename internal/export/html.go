// internal/export/html.go
package export

import (
	"bytes"
	"html"

	"github.com/pagehound/pagehound/pkg/types"
)

const htmlHeader = `<!DOCTYPE html><html><head><title>PageHound Data</title>` +
	`<style>table {border-collapse: collapse; width: 100%;} ` +
	`th, td {border: 1px solid #ddd; padding: 8px; text-align: left;} ` +
	`th {background-color: #f2f2f2;} img {max-width: 100px;}</style></head><body>`

// renderHTML produces a standalone document with one heading and table per
// populated type. Image cells render as thumbnails, URL cells as links.
func renderHTML(scraped *types.ScrapedStore) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(htmlHeader)

	for _, sec := range sections(scraped) {
		buf.WriteString("<h2>" + html.EscapeString(sec.Label) + "</h2><table>")
		if len(sec.Columns) > 0 {
			buf.WriteString("<tr>")
			for _, col := range sec.Columns {
				buf.WriteString("<th>" + html.EscapeString(col.Label) + "</th>")
			}
			buf.WriteString("</tr>")
		}
		for _, rec := range sec.Records {
			buf.WriteString("<tr>")
			cells := row(sec, rec)
			for i, value := range cells {
				buf.WriteString("<td>" + htmlCell(sec, i, value) + "</td>")
			}
			buf.WriteString("</tr>")
		}
		buf.WriteString("</table>")
	}

	buf.WriteString("</body></html>")
	return buf.Bytes(), nil
}

func htmlCell(sec section, colIndex int, value string) string {
	if value == "" || colIndex >= len(sec.Columns) {
		return html.EscapeString(value)
	}
	escaped := html.EscapeString(value)
	switch sec.Columns[colIndex].Key {
	case "image", "src":
		return `<img src="` + escaped + `">`
	case "url", "href", "website":
		return `<a href="` + escaped + `">` + escaped + `</a>`
	}
	return escaped
}
