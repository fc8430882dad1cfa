// Package slide discovers slides on disk and reads their metadata.
//
// A slide named X is a folder X/ holding a main file X.<ext>, where ext is
// one of the ValidExtensions. Packaged slides are zips containing X/X.<ext>.
package slide

import (
	"archive/zip"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ValidExtensions are the main-file types a slide may have.
var ValidExtensions = []string{".html", ".htm", ".pdf", ".jpg", ".jpeg", ".mp4"}

// Slide is a slide folder on disk.
type Slide struct {
	// Name is the folder name, also the main file's base name.
	Name string
	// Dir is the slide folder.
	Dir string
	// Main is the path of the main file.
	Main string
	// Ext is the main file's extension, lower-cased.
	Ext string
}

// IsHTML reports whether the slide's main file is an HTML page.
func (s Slide) IsHTML() bool {
	return s.Ext == ".html" || s.Ext == ".htm"
}

// ZipName returns the package file name for the slide.
func (s Slide) ZipName() string {
	return s.Name + ".zip"
}

// MainFile returns the main file of the slide folder dir.
func MainFile(dir string) (string, string, bool) {
	name := filepath.Base(dir)
	for _, ext := range ValidExtensions {
		p := filepath.Join(dir, name+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, ext, true
		}
	}
	return "", "", false
}

// Load inspects a single folder.
func Load(dir string) (Slide, bool) {
	main, ext, ok := MainFile(dir)
	if !ok {
		return Slide{}, false
	}
	return Slide{Name: filepath.Base(dir), Dir: dir, Main: main, Ext: ext}, true
}

// Discover returns the slides directly under root, sorted by name.
// Folders starting with "_" or "." are skipped, so build artifacts such as
// _zips and _ctls are never treated as slides.
func Discover(root string) ([]Slide, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read slides in %s: %w", root, err)
	}

	var slides []Slide
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		if s, ok := Load(filepath.Join(root, e.Name())); ok {
			slides = append(slides, s)
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].Name < slides[j].Name })
	return slides, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

// ZipEntry returns the main-file entry of a packaged slide, e.g. "X/X.html"
// inside X.zip.
func ZipEntry(zipPath string) (entry string, ext string, err error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", "", fmt.Errorf("open %s: %w", zipPath, err)
	}
	defer r.Close()

	name := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	return findEntry(&r.Reader, name)
}

func findEntry(r *zip.Reader, name string) (string, string, error) {
	for _, ext := range ValidExtensions {
		want := path.Join(name, name+ext)
		for _, f := range r.File {
			if strings.EqualFold(f.Name, want) {
				return f.Name, ext, nil
			}
		}
	}
	return "", "", fmt.Errorf("%s.zip: no %s/%s.<ext> entry", name, name, name)
}

// IsSlideZip reports whether zipPath holds a packaged slide.
func IsSlideZip(zipPath string) bool {
	_, _, err := ZipEntry(zipPath)
	return err == nil
}
