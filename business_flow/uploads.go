package businessflow

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/services"
	"github.com/amirphl/business-registry/utils"
)

// uploadPolicy restricts one kind of upload. exts maps an extension to the
// content family its sniffed type must belong to.
type uploadPolicy struct {
	category string
	exts     map[string]string
	maxSize  int64
}

var documentUploadPolicy = uploadPolicy{
	category: "documents",
	exts: map[string]string{
		".pdf":  "document",
		".doc":  "document",
		".docx": "document",
		".jpg":  "image",
		".jpeg": "image",
		".png":  "image",
	},
	maxSize: utils.MaxDocumentSize,
}

var evidenceUploadPolicy = uploadPolicy{
	category: "evidence",
	exts:     documentUploadPolicy.exts,
	maxSize:  utils.MaxDocumentSize,
}

var reviewMediaUploadPolicy = uploadPolicy{
	category: "review_media",
	exts: map[string]string{
		".jpg":  "image",
		".jpeg": "image",
		".png":  "image",
		".gif":  "image",
		".webp": "image",
	},
	maxSize: utils.MaxReviewMediaSize,
}

type storedUpload struct {
	path     string
	size     int64
	mimeType string
}

func storeUpload(ctx context.Context, store services.FileStore, policy uploadPolicy, req dto.UploadRequest) (*storedUpload, error) {
	if req.File == nil {
		return nil, validationErrorf("file is required")
	}
	if req.FileSize > policy.maxSize {
		return nil, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(req.OriginalFilename))
	family, ok := policy.exts[ext]
	if !ok {
		return nil, ErrUnsupportedFileType
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(req.File, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	head = head[:n]
	if n == 0 {
		return nil, validationErrorf("file is empty")
	}

	detected := http.DetectContentType(head)
	if !sniffMatches(detected, family) {
		return nil, ErrUnsupportedFileType
	}
	if detected == "application/octet-stream" || strings.HasPrefix(detected, "application/zip") {
		if fromExt := mime.TypeByExtension(ext); fromExt != "" {
			detected = fromExt
		}
	}

	path, size, err := store.Save(ctx, policy.category, ext, io.MultiReader(bytes.NewReader(head), req.File), policy.maxSize)
	if err != nil {
		if errors.Is(err, services.ErrStoredFileTooLarge) {
			return nil, ErrFileTooLarge
		}
		return nil, err
	}

	return &storedUpload{path: path, size: size, mimeType: detected}, nil
}

func sniffMatches(detected, family string) bool {
	switch family {
	case "image":
		return strings.HasPrefix(detected, "image/")
	case "document":
		return detected == "application/pdf" ||
			detected == "application/octet-stream" ||
			strings.HasPrefix(detected, "application/zip") ||
			strings.HasPrefix(detected, "application/msword")
	default:
		return false
	}
}
