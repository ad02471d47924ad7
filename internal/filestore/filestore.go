// Package filestore writes uploaded images to local disk under a public
// uploads root and returns the URL they are served from.
package filestore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"pastelfeed/internal/common"
)

const (
	PurposeProfile = "profile"
	PurposeFeed    = "feed"

	ProfileMaxBytes = 5 * 1024 * 1024
	FeedMaxBytes    = 10 * 1024 * 1024
)

var purposePattern = regexp.MustCompile(`^[A-Za-z0-9]{1,32}$`)

// feedTypes is the allow-list for feed and other purpose uploads.
var feedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Upload is one file as received from a client.
type Upload struct {
	Purpose     string
	OwnerID     uint
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Stored describes a file that was written and verified on disk.
type Stored struct {
	Filename string
	Path     string
	URL      string
	Size     int64
	MimeType string
}

type policy struct {
	maxBytes int64
	dir      string
	name     func(ownerID uint, ext string, now time.Time) string
	allowed  func(mime string) bool
}

// anyImage accepts raster images. SVG can carry script and is refused.
func anyImage(mime string) bool {
	return strings.HasPrefix(mime, "image/") && mime != "image/svg+xml"
}

func allowListed(mime string) bool {
	return feedTypes[mime]
}

func policyFor(purpose string, ownerID uint) policy {
	if purpose == PurposeProfile {
		return policy{
			maxBytes: ProfileMaxBytes,
			dir:      "profile_photos",
			name: func(ownerID uint, ext string, now time.Time) string {
				return fmt.Sprintf("profile-%d-%d%s", ownerID, now.UnixMilli(), ext)
			},
			allowed: anyImage,
		}
	}
	return policy{
		maxBytes: FeedMaxBytes,
		dir:      path.Join(purpose, fmt.Sprint(ownerID)),
		name: func(_ uint, ext string, now time.Time) string {
			return fmt.Sprintf("%s-image-%d-%s%s", purpose, now.UnixMilli(), uuid.NewString()[:8], ext)
		},
		allowed: allowListed,
	}
}

// Store saves uploads beneath Root. URLs are PublicPath joined with the
// path relative to Root.
type Store struct {
	root       string
	publicPath string
	now        func() time.Time
}

func New(root, publicPath string) *Store {
	return &Store{
		root:       root,
		publicPath: "/" + strings.Trim(publicPath, "/"),
		now:        time.Now,
	}
}

func (s *Store) Root() string { return s.root }

// ValidPurpose reports whether purpose is usable as a directory tag.
func ValidPurpose(purpose string) bool {
	return purposePattern.MatchString(purpose)
}

// Save validates and writes the upload. Validation failures return
// InvalidInput before anything touches the disk.
func (s *Store) Save(up Upload) (*Stored, error) {
	if !ValidPurpose(up.Purpose) {
		return nil, common.InvalidInput("Invalid upload type")
	}
	if up.Body == nil {
		return nil, common.InvalidInput("No file uploaded")
	}
	pol := policyFor(up.Purpose, up.OwnerID)

	if up.Size > pol.maxBytes {
		return nil, tooLarge(pol.maxBytes)
	}
	declared := normalizeMime(up.ContentType)
	if declared != "" && declared != "application/octet-stream" && !pol.allowed(declared) {
		return nil, common.InvalidInput("Only image files are allowed")
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, pol.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > pol.maxBytes {
		return nil, tooLarge(pol.maxBytes)
	}
	if len(data) == 0 {
		return nil, common.InvalidInput("No file uploaded")
	}

	detected := mimetype.Detect(data)
	sniffed := normalizeMime(detected.String())
	if !pol.allowed(sniffed) {
		return nil, common.InvalidInput("Only image files are allowed")
	}

	// The stored extension follows the sniffed content, never the client's
	// filename, so static serving cannot pick a scriptable type.
	ext := detected.Extension()
	if ext == "" {
		return nil, common.InvalidInput("Only image files are allowed")
	}
	name := pol.name(up.OwnerID, ext, s.now())

	dir := filepath.Join(s.root, filepath.FromSlash(pol.dir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	dest := filepath.Join(dir, name)
	if err := writeFile(dest, data); err != nil {
		return nil, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("file was not saved: %w", err)
	}

	return &Stored{
		Filename: name,
		Path:     dest,
		URL:      path.Join(s.publicPath, pol.dir, name),
		Size:     info.Size(),
		MimeType: sniffed,
	}, nil
}

// Remove deletes a previously stored file. Paths outside Root are refused
// and a missing file is not an error.
func (s *Store) Remove(p string) error {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s outside upload root", p)
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	return nil
}

func writeFile(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close upload: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move upload into place: %w", err)
	}
	return nil
}

func normalizeMime(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}

func tooLarge(limit int64) error {
	return common.InvalidInput("File too large. Maximum size is %dMB", limit/(1024*1024))
}
