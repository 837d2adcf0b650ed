// Package storage stages incoming files on local disk and pushes them to the media store.
package storage

import (
	"context"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	FolderAvatars    = "avatars"
	FolderCovers     = "covers"
	FolderVideos     = "videos"
	FolderThumbnails = "thumbnails"
)

const (
	ResourceImage = "image"
	ResourceVideo = "video"
	ResourceRaw   = "raw"
)

type UploadResult struct {
	URL       string
	SecureURL string
	PublicID  string
	// Duration is in seconds; zero when the store cannot tell.
	Duration     float64
	ResourceType string
}

// Uploader is the remote media store.
type Uploader interface {
	Upload(ctx context.Context, localPath, folder string) (*UploadResult, error)
	Destroy(ctx context.Context, publicID string) error
}

var mediaExt = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// DetectResource classifies content from its first bytes, falling back to the file extension.
func DetectResource(head []byte, name string) (contentType, resourceType string) {
	contentType = http.DetectContentType(head)
	if contentType == "application/octet-stream" {
		ext := strings.ToLower(filepath.Ext(name))
		if byExt, ok := mediaExt[ext]; ok {
			contentType = byExt
		} else if byExt := mime.TypeByExtension(ext); byExt != "" {
			contentType = byExt
		}
	}
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return contentType, ResourceVideo
	case strings.HasPrefix(contentType, "image/"):
		return contentType, ResourceImage
	default:
		return contentType, ResourceRaw
	}
}
