package httpserve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/internal/server"
	"github.com/bnema/tarpush/pkg/validation"
	"github.com/bnema/tarpush/pkg/verify"
)

// FormField is the multipart field carrying the archive.
const FormField = "dockerTar"

// multipartSlack covers boundaries and part headers on top of the file itself.
const multipartSlack = 1 << 20

var (
	errNoFile       = errors.New("no file uploaded")
	errBadFileName  = errors.New("invalid file name")
	errNotMultipart = errors.New("request is not multipart/form-data")
)

type UploadResponse struct {
	Message      string                 `json:"message"`
	File         string                 `json:"file"`
	DockerResult *domain.PipelineResult `json:"dockerResult"`
}

// UploadDockerTarHandler handles POST /api/upload-docker-tar.
//
// The archive is streamed to the upload directory under a random name and
// handed to the pipeline, which deletes it. The pipeline runs detached from
// the request context so a client disconnect does not abort a push halfway.
func UploadDockerTarHandler(c echo.Context, a *server.App) error {
	maxSize, err := a.Config.MaxUploadBytes()
	if err != nil {
		return sendError(c, http.StatusInternalServerError, "Invalid server configuration", err.Error(), "")
	}
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxSize+multipartSlack)

	staged, filename, err := stageUpload(req, a.Config.General.UploadDir, maxSize)
	if staged != "" {
		defer removeStaged(a, staged)
	}
	if err != nil {
		return uploadError(c, a, err)
	}

	log := a.Log.With("file", filename, "request_id", c.Response().Header().Get(echo.HeaderXRequestID))
	log.Info("Processing uploaded archive", "staged", staged)

	result, err := a.Pipeline.Run(context.WithoutCancel(req.Context()), staged)
	if err != nil {
		return pipelineError(c, a, err)
	}

	return c.JSON(http.StatusOK, UploadResponse{
		Message:      "Docker tar file processed: " + result.Summary(),
		File:         filename,
		DockerResult: result,
	})
}

// stageUpload copies the dockerTar part to dir. It returns the staged path as
// soon as a file was created so the caller can always remove it.
func stageUpload(req *http.Request, dir string, maxSize int64) (string, string, error) {
	mr, err := req.MultipartReader()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", errNotMultipart, err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", "", errNoFile
		}
		if err != nil {
			return "", "", classifyReadError(err)
		}
		if part.FormName() != FormField || part.FileName() == "" {
			part.Close()
			continue
		}

		filename, err := validation.ValidateUploadName(part.FileName())
		if err != nil {
			part.Close()
			return "", filename, fmt.Errorf("%w: %v", errBadFileName, err)
		}

		staged, err := writePart(part, dir, maxSize)
		part.Close()
		return staged, filename, err
	}
}

func writePart(part *multipart.Part, dir string, maxSize int64) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	staged := filepath.Join(dir, uuid.NewString()+".tar")
	if err := validation.ValidatePathWithinRoot(dir, staged); err != nil {
		return "", err
	}
	f, err := os.OpenFile(staged, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}

	// One extra byte tells an exact-size file from an oversized one.
	n, copyErr := io.Copy(f, io.LimitReader(part, maxSize+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		return staged, classifyReadError(copyErr)
	case n > maxSize:
		return staged, &verify.ValidationError{Kind: verify.KindFileTooLarge, Path: staged,
			Cause: fmt.Errorf("upload exceeds %d bytes", maxSize)}
	case closeErr != nil:
		return staged, fmt.Errorf("failed to write staging file: %w", closeErr)
	}
	return staged, nil
}

func classifyReadError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return &verify.ValidationError{Kind: verify.KindFileTooLarge, Cause: err}
	}
	return fmt.Errorf("failed to read upload: %w", err)
}

func removeStaged(a *server.App, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.Log.Error("Failed to remove staged upload", "path", path, "error", err)
	}
}

func uploadError(c echo.Context, a *server.App, err error) error {
	a.Log.Warn("Upload rejected", "error", err)
	if kind, ok := verify.KindOf(err); ok {
		return sendError(c, http.StatusBadRequest, "Invalid tar file", err.Error(), string(kind))
	}
	switch {
	case errors.Is(err, errNoFile):
		return sendError(c, http.StatusBadRequest, "No file uploaded",
			fmt.Sprintf("multipart field %q is required", FormField), "")
	case errors.Is(err, errBadFileName):
		return sendError(c, http.StatusBadRequest, "Invalid file type", err.Error(), string(verify.KindInvalidFile))
	case errors.Is(err, errNotMultipart):
		return sendError(c, http.StatusBadRequest, "Invalid upload", err.Error(), "")
	}
	return sendError(c, http.StatusInternalServerError, "Failed to receive Docker tar file", err.Error(), "")
}

func pipelineError(c echo.Context, a *server.App, err error) error {
	if kind, ok := verify.KindOf(err); ok {
		return sendError(c, http.StatusBadRequest, "Invalid tar file", err.Error(), string(kind))
	}
	a.Log.Error("Pipeline failed", "error", err)
	if errors.Is(err, domain.ErrEngineUnavailable) {
		return sendError(c, http.StatusInternalServerError, "Docker daemon is not available", err.Error(), "EngineUnavailable")
	}
	return sendError(c, http.StatusInternalServerError, "Failed to process Docker tar file", err.Error(), "")
}
