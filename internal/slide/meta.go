package slide

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Meta names used to describe a slide to the content platform.
const (
	MetaTitle       = "veeva_title"
	MetaDescription = "veeva_description"
)

// Meta is the slide metadata written into control files.
// Empty fields were not found.
type Meta struct {
	Title       string
	Description string
}

// ReadMeta extracts veeva_title and veeva_description meta tags from an HTML document.
func ReadMeta(r io.Reader) (Meta, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Meta{}, fmt.Errorf("parse html: %w", err)
	}

	var m Meta
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			switch attr(n, "name") {
			case MetaTitle:
				if m.Title == "" {
					m.Title = attr(n, "content")
				}
			case MetaDescription:
				if m.Description == "" {
					m.Description = attr(n, "content")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return m, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// ZipMeta reads metadata from a packaged slide. Non-HTML slides and zips
// without a recognizable main file yield empty metadata. The title falls
// back to the slide name.
func ZipMeta(zipPath string) (Meta, error) {
	name := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return Meta{}, fmt.Errorf("open %s: %w", zipPath, err)
	}
	defer r.Close()

	m := Meta{}
	entry, ext, err := findEntry(&r.Reader, name)
	if err == nil && (ext == ".html" || ext == ".htm") {
		f, err := r.Open(entry)
		if err != nil {
			return Meta{}, fmt.Errorf("open %s in %s: %w", entry, zipPath, err)
		}
		defer f.Close()
		if m, err = ReadMeta(f); err != nil {
			return Meta{}, fmt.Errorf("%s: %w", zipPath, err)
		}
	}

	if m.Title == "" {
		m.Title = name
	}
	return m, nil
}
