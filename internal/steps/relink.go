package steps

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ShayCichocki/velveeva/internal/build"
)

var (
	leadingParents = regexp.MustCompile(`^(\.\./)+`)
	slideLink      = regexp.MustCompile(`([^/]+)/([^/]+)\.html?`)
	veevaGoto      = regexp.MustCompile(`veeva:gotoSlide\((.+)\.zip\)`)
)

// StripParents removes leading "../" segments from a path.
func StripParents(p string) string {
	return leadingParents.ReplaceAllString(p, "")
}

// ToVeevaLink turns a relative link to another slide ("x/x.html") into a
// veeva:gotoSlide(x.zip) call. Absolute URLs and other links are unchanged.
func ToVeevaLink(href string) string {
	if u, err := url.Parse(href); err == nil && u.Host != "" {
		return href
	}
	m := slideLink.FindStringSubmatch(href)
	if m == nil || m[1] != m[2] {
		return href
	}
	return "veeva:gotoSlide(" + m[1] + ".zip)"
}

// ToRelativeLink reverses ToVeevaLink: veeva:gotoSlide(x.zip) becomes ../x/x.html.
func ToRelativeLink(href string) string {
	m := veevaGoto.FindStringSubmatch(href)
	if m == nil {
		return href
	}
	return "../" + m[1] + "/" + m[1] + ".html"
}

// Relink rewrites a document for upload: asset paths lose leading "../",
// slide links become veeva:gotoSlide calls, and a utf-8 charset meta is
// added when the document has none.
func Relink(src []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	hasCharset := false
	var head *html.Node
	walkNodes(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.DataAtom {
		case atom.Head:
			if head == nil {
				head = n
			}
		case atom.Link:
			if strings.EqualFold(getAttr(n, "rel"), "stylesheet") {
				mapAttr(n, "href", StripParents)
			}
		case atom.Script, atom.Img, atom.Iframe:
			mapAttr(n, "src", StripParents)
		case atom.A:
			mapAttr(n, "href", func(v string) string { return ToVeevaLink(StripParents(v)) })
		case atom.Meta:
			if hasAttr(n, "charset") {
				hasCharset = true
			}
		}
	})

	if !hasCharset && head != nil {
		meta := &html.Node{
			Type:     html.ElementNode,
			Data:     "meta",
			DataAtom: atom.Meta,
			Attr:     []html.Attribute{{Key: "charset", Val: "utf-8"}},
		}
		head.InsertBefore(meta, head.FirstChild)
	}
	return render(doc)
}

// RelativeLinks rewrites veeva:gotoSlide links back to relative paths so
// the build can be browsed locally.
func RelativeLinks(src []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	walkNodes(doc, func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			mapAttr(n, "href", ToRelativeLink)
		}
	})
	return render(doc)
}

func render(doc *html.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

func walkNodes(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, fn)
	}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func mapAttr(n *html.Node, key string, fn func(string) string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = fn(a.Val)
		}
	}
}

// rewriteHTML applies fn to every HTML file in the build.
func rewriteHTML(env *build.Environment, fn func([]byte) ([]byte, error)) error {
	files, err := walkFiles(env.OutputPath(), ".html", ".htm")
	if err != nil {
		return fmt.Errorf("scan build: %w", err)
	}
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		out, err := fn(src)
		if err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		if err := os.WriteFile(f, out, 0644); err != nil {
			return err
		}
	}
	return nil
}

// RelinkAction rewrites every built page for upload.
func RelinkAction(_ context.Context, env *build.Environment, _ int) error {
	return rewriteHTML(env, Relink)
}

// Veev2RelAction rewrites every built page for local browsing.
func Veev2RelAction(_ context.Context, env *build.Environment, _ int) error {
	return rewriteHTML(env, RelativeLinks)
}
