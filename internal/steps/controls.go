package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/velveeva/internal/build"
	"github.com/ShayCichocki/velveeva/internal/slide"
)

// ControlRecord is the content of one .ctl file.
type ControlRecord struct {
	User        string
	Password    string
	Filename    string
	Email       string
	Version     string
	Description string
	Name        string
}

// String renders the record as newline-terminated KEY=value lines.
// Optional fields are omitted when empty.
func (r ControlRecord) String() string {
	lines := []string{
		"USER=" + r.User,
		"PASSWORD=" + r.Password,
		"FILENAME=" + r.Filename,
	}
	if r.Email != "" {
		lines = append(lines, "EMAIL="+r.Email)
	}
	if r.Version != "" {
		lines = append(lines, "Slide_Version_vod__c="+r.Version)
	}
	if r.Description != "" {
		lines = append(lines, "Description_vod__c="+r.Description)
	}
	lines = append(lines, "Name="+r.Name)
	return strings.Join(lines, "\n") + "\n"
}

// ControlFileName returns the .ctl name for a slide zip.
func ControlFileName(zipName string) string {
	return strings.TrimSuffix(filepath.Base(zipName), filepath.Ext(zipName)) + ".ctl"
}

// NewControlRecord builds the record for a packaged slide, reading its
// title and description from the slide's metadata.
func NewControlRecord(env *build.Environment, zipPath string) (ControlRecord, error) {
	meta, err := slide.ZipMeta(zipPath)
	if err != nil {
		return ControlRecord{}, err
	}
	return ControlRecord{
		User:        env.Remote.Username,
		Password:    env.Remote.Password,
		Filename:    filepath.Base(zipPath),
		Email:       env.Remote.Email,
		Version:     env.Version,
		Description: meta.Description,
		Name:        meta.Title,
	}, nil
}

// Controls writes one control file per packaged slide.
// Zips that do not contain a slide are skipped.
func (s *Steps) Controls(_ context.Context, env *build.Environment, _ int) error {
	zips, err := filepath.Glob(filepath.Join(env.ZipsPath(), "*.zip"))
	if err != nil {
		return err
	}
	if len(zips) == 0 {
		return fmt.Errorf("no packaged slides in %s", env.ZipsPath())
	}
	if err := os.MkdirAll(env.CtlsPath(), 0755); err != nil {
		return fmt.Errorf("create %s: %w", env.CtlsPath(), err)
	}

	for _, z := range zips {
		if !slide.IsSlideZip(z) {
			continue
		}
		rec, err := NewControlRecord(env, z)
		if err != nil {
			return err
		}
		dst := filepath.Join(env.CtlsPath(), ControlFileName(z))
		if err := os.WriteFile(dst, []byte(rec.String()), 0600); err != nil {
			return fmt.Errorf("write %s: %w", dst, err)
		}
	}
	return nil
}
