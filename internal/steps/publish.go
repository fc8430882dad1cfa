package steps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/ShayCichocki/velveeva/internal/build"
)

// Remote directories on the content platform's FTP server.
const (
	ContentDir = "/content"
	CtlFileDir = "/ctlfile"
)

// DialTimeout bounds connecting to the publish server.
const DialTimeout = 30 * time.Second

// Conn is the subset of an FTP session publishing needs.
type Conn interface {
	ChangeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

// Dialer opens an authenticated connection.
type Dialer func(ctx context.Context, server, user, password string) (Conn, error)

// DialFTP connects to server (port 21 unless given) and logs in.
func DialFTP(ctx context.Context, server, user, password string) (Conn, error) {
	addr := server
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(server, "21")
	}
	c, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(DialTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	if err := c.Login(user, password); err != nil {
		c.Quit()
		return nil, fmt.Errorf("login %s: %w", addr, err)
	}
	return c, nil
}

// Upload is one zip and its control file.
type Upload struct {
	Zip string
	Ctl string
}

// PairUploads matches zips with control files by base name. Zips without
// a control file, and control files without a zip, are left out.
func PairUploads(zipsDir, ctlsDir string) ([]Upload, error) {
	zips, err := filepath.Glob(filepath.Join(zipsDir, "*.zip"))
	if err != nil {
		return nil, err
	}
	ctls, err := filepath.Glob(filepath.Join(ctlsDir, "*.ctl"))
	if err != nil {
		return nil, err
	}

	ctlByName := make(map[string]string, len(ctls))
	for _, c := range ctls {
		ctlByName[stem(c)] = c
	}

	var uploads []Upload
	for _, z := range zips {
		if c, ok := ctlByName[stem(z)]; ok {
			uploads = append(uploads, Upload{Zip: z, Ctl: c})
		}
	}
	sort.Slice(uploads, func(i, j int) bool { return uploads[i].Zip < uploads[j].Zip })
	return uploads, nil
}

func stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Publish uploads packaged slides and then their control files. Zips go to
// ContentDir, or the login directory when the server has none; control
// files must go to CtlFileDir.
func (s *Steps) Publish(ctx context.Context, env *build.Environment, _ int) error {
	if !env.HasRemote() {
		return errors.New("publish: VEEVA.server and VEEVA.username must be configured")
	}
	uploads, err := PairUploads(env.ZipsPath(), env.CtlsPath())
	if err != nil {
		return err
	}
	if len(uploads) == 0 {
		return fmt.Errorf("publish: no zip/ctl pairs in %s and %s", env.ZipsPath(), env.CtlsPath())
	}

	conn, err := s.deps.Dial(ctx, env.Remote.Server, env.Remote.Username, env.Remote.Password)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	defer conn.Quit()

	// Zips first: the platform starts processing as soon as a ctl lands.
	if err := conn.ChangeDir(ContentDir); err != nil && env.Verbose {
		fmt.Fprintf(os.Stderr, "%s not found, uploading zips to home directory\n", ContentDir)
	}
	for _, u := range uploads {
		if err := store(conn, u.Zip); err != nil {
			return err
		}
	}

	if err := conn.ChangeDir(CtlFileDir); err != nil {
		return fmt.Errorf("publish: change to %s: %w", CtlFileDir, err)
	}
	for _, u := range uploads {
		if err := store(conn, u.Ctl); err != nil {
			return err
		}
	}
	return nil
}

func store(conn Conn, local string) error {
	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := conn.Stor(filepath.Base(local), f); err != nil {
		return fmt.Errorf("upload %s: %w", filepath.Base(local), err)
	}
	return nil
}
