package content

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/signal-comb/app/cfg"
	"github.com/lysyi3m/signal-comb/app/database"
)

// Generator renders a source's ingested content as an RSS 2.0 document.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(source database.Source, items []database.ContentItem) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", source.Name, 4)
	g.writeElement(&buf, "link", source.SourceURL, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Signals collected from %s (%s)", source.SourceURL, source.Platform), 4)

	var selfLink string
	if cfg.Get().BaseUrl != "" {
		selfLink = fmt.Sprintf("%s/feeds/%s", cfg.Get().BaseUrl, source.ID)
	} else {
		selfLink = fmt.Sprintf("http://localhost:%s/feeds/%s", cfg.Get().Port, source.ID)
	}
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(items) > 0 {
		lastBuildDate = cmp.Or(items[0].PublishedAt, items[0].CreatedAt, lastBuildDate)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Signal-Comb/%s", cfg.Get().Version), 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item database.ContentItem) {
	buf.WriteString("    <item>\n")

	guid := cmp.Or(item.URL, item.ID)
	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(guid)))
	xml.EscapeText(buf, []byte(guid))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.Title, 6)
	if g.isURL(item.URL) {
		g.writeElement(buf, "link", item.URL, 6)
	}
	g.writeElement(buf, "description", cmp.Or(item.Body, "No description available"), 6)
	g.writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)
	g.writeElement(buf, "author", item.Author, 6)
	g.writeElement(buf, "category", item.ContentType, 6)
	if item.Synthetic() {
		g.writeElement(buf, "category", "synthetic", 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
