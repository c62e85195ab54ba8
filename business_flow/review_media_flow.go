package businessflow

import (
	"bytes"
	"context"
	"image"
	"image/color"
	imagedraw "image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"mime"
	"path/filepath"
	"strings"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/services"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	"github.com/amirphl/business-registry/utils"
	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const previewMaxDim = 512

// ReviewMediaFlow defines operations for images attached to reviews
type ReviewMediaFlow interface {
	UploadMedia(ctx context.Context, reviewID, userID uint, req *dto.UploadRequest) (*models.ReviewMedia, error)
	ListMedia(ctx context.Context, reviewID uint) ([]*models.ReviewMedia, error)
	DownloadMedia(ctx context.Context, mediaID uint) (string, string, []byte, error)
	PreviewMedia(ctx context.Context, mediaID uint) (string, string, []byte, error)
}

// ReviewMediaFlowImpl implements ReviewMediaFlow
type ReviewMediaFlowImpl struct {
	reviewRepo repository.ReviewRepository
	mediaRepo  repository.ReviewMediaRepository
	fileStore  services.FileStore
	logger     *logrus.Logger
}

// NewReviewMediaFlow creates a new review media flow instance
func NewReviewMediaFlow(
	reviewRepo repository.ReviewRepository,
	mediaRepo repository.ReviewMediaRepository,
	fileStore services.FileStore,
	logger *logrus.Logger,
) ReviewMediaFlow {
	return &ReviewMediaFlowImpl{
		reviewRepo: reviewRepo,
		mediaRepo:  mediaRepo,
		fileStore:  fileStore,
		logger:     logger,
	}
}

// UploadMedia attaches an image to the caller's own review
func (f *ReviewMediaFlowImpl) UploadMedia(ctx context.Context, reviewID, userID uint, req *dto.UploadRequest) (*models.ReviewMedia, error) {
	if req == nil {
		return nil, NewBusinessError("REVIEW_MEDIA_VALIDATION_FAILED", "Review media validation failed", validationErrorf("file is required"))
	}

	review, err := f.reviewRepo.ByID(ctx, reviewID)
	if err != nil {
		return nil, NewBusinessError("REVIEW_MEDIA_UPLOAD_FAILED", "Failed to upload review media", err)
	}
	if review == nil {
		return nil, NewBusinessError("REVIEW_MEDIA_UPLOAD_FAILED", "Failed to upload review media", ErrReviewNotFound)
	}
	if review.UserID != userID {
		return nil, NewBusinessError("REVIEW_MEDIA_UPLOAD_FAILED", "Failed to upload review media", ErrPermissionDenied)
	}

	stored, err := storeUpload(ctx, f.fileStore, reviewMediaUploadPolicy, *req)
	if err != nil {
		return nil, NewBusinessError("REVIEW_MEDIA_UPLOAD_FAILED", "Failed to upload review media", err)
	}

	media := &models.ReviewMedia{
		ReviewID:         reviewID,
		UploadedBy:       userID,
		OriginalFilename: req.OriginalFilename,
		StoredPath:       stored.path,
		MimeType:         stored.mimeType,
		SizeBytes:        stored.size,
		CreatedAt:        utils.UTCNow(),
	}
	if err := f.mediaRepo.Save(ctx, media); err != nil {
		_ = f.fileStore.Remove(ctx, stored.path)
		return nil, NewBusinessError("REVIEW_MEDIA_UPLOAD_FAILED", "Failed to upload review media", err)
	}
	return media, nil
}

func (f *ReviewMediaFlowImpl) ListMedia(ctx context.Context, reviewID uint) ([]*models.ReviewMedia, error) {
	media, err := f.mediaRepo.ListByReview(ctx, reviewID)
	if err != nil {
		return nil, NewBusinessError("REVIEW_MEDIA_LIST_FAILED", "Failed to list review media", err)
	}
	return media, nil
}

// DownloadMedia returns filename, content type and bytes of the original upload
func (f *ReviewMediaFlowImpl) DownloadMedia(ctx context.Context, mediaID uint) (string, string, []byte, error) {
	media, data, err := f.load(ctx, mediaID)
	if err != nil {
		return "", "", nil, NewBusinessError("REVIEW_MEDIA_DOWNLOAD_FAILED", "Failed to download review media", err)
	}

	filename := filepath.Base(media.StoredPath)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = media.MimeType
	}
	return filename, contentType, data, nil
}

// PreviewMedia returns a JPEG thumbnail no larger than 512px on either side
func (f *ReviewMediaFlowImpl) PreviewMedia(ctx context.Context, mediaID uint) (string, string, []byte, error) {
	_, data, err := f.load(ctx, mediaID)
	if err != nil {
		return "", "", nil, NewBusinessError("REVIEW_MEDIA_PREVIEW_FAILED", "Failed to preview review media", err)
	}

	thumb, err := imageThumbnail(data, previewMaxDim)
	if err != nil {
		f.logger.WithError(err).WithField("media_id", mediaID).Warn("failed to render preview")
		return "", "", nil, NewBusinessError("REVIEW_MEDIA_PREVIEW_FAILED", "Failed to preview review media",
			ErrUnsupportedFileType)
	}
	return "preview.jpg", "image/jpeg", thumb, nil
}

func (f *ReviewMediaFlowImpl) load(ctx context.Context, mediaID uint) (*models.ReviewMedia, []byte, error) {
	media, err := f.mediaRepo.ByID(ctx, mediaID)
	if err != nil {
		return nil, nil, err
	}
	if media == nil {
		return nil, nil, ErrMediaNotFound
	}
	data, err := f.fileStore.Read(ctx, media.StoredPath)
	if err != nil {
		return nil, nil, err
	}
	return media, data, nil
}

func imageThumbnail(data []byte, maxDim int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	thumb := resizeImage(img, maxDim)
	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, thumb, &jpeg.Options{Quality: 75}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// resizeImage scales src to fit within maxDim on a white background.
// Images already within bounds are returned unchanged.
func resizeImage(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		nh = maxDim
		nw = int(float64(w) * float64(maxDim) / float64(h))
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
