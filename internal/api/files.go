package api

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/slidesmith/slidesmith-go/internal/domain/model"
	apperrors "github.com/slidesmith/slidesmith-go/internal/errors"
)

// UploadFile names one file for a multipart upload.
type UploadFile struct {
	// Name is the filename reported to the server.
	Name string
	// Reader provides the file contents.
	Reader io.Reader
}

// Download is an open artifact download. The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
}

// UploadFiles posts reference documents to the server and returns the stored
// file ids used by CreateTaskRequest.UploadedFileID.
func (c *Client) UploadFiles(ctx context.Context, files []UploadFile) (model.UploadResponse, error) {
	var resp model.UploadResponse
	if len(files) == 0 {
		return resp, apperrors.Validation("at least one file is required")
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(writer, files))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", pr)
	if err != nil {
		return resp, apperrors.Wrap(err, apperrors.ErrCodeInternal, "create upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	httpResp, err := c.client.Do(req)
	if err != nil {
		return resp, apperrors.Wrap(err, apperrors.ErrCodeLifecycle, "upload failed")
	}
	err = decodeResponse(httpResp, &resp)
	return resp, err
}

func writeMultipart(writer *multipart.Writer, files []UploadFile) error {
	for _, file := range files {
		part, err := writer.CreateFormFile("files", filepath.Base(file.Name))
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, file.Reader); err != nil {
			return err
		}
	}
	return writer.Close()
}

// DownloadArtifact streams the generated output file for a task. Pass a
// non-negative sample index to pick one sample of a multi-sample task, or a
// negative index for the task's primary output.
func (c *Client) DownloadArtifact(ctx context.Context, taskID string, sample int) (*Download, error) {
	return c.download(ctx, "/api/download/"+url.PathEscape(taskID), sample)
}

// DownloadWorkspace streams the zipped generation workspace for a task.
func (c *Client) DownloadWorkspace(ctx context.Context, taskID string, sample int) (*Download, error) {
	return c.download(ctx, "/api/download/"+url.PathEscape(taskID)+"/workspace-zip", sample)
}

func (c *Client) download(ctx context.Context, path string, sample int) (*Download, error) {
	if sample >= 0 {
		path += "?sample=" + strconv.Itoa(sample)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "create download request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeLifecycle, "download failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, lifecycleError(resp)
	}

	return &Download{
		Body:        resp.Body,
		Filename:    downloadFilename(resp),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func downloadFilename(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return filepath.Base(name)
			}
		}
	}
	return ""
}

// SlidePreviewURL builds the URL serving a single rendered slide page.
func (c *Client) SlidePreviewURL(taskID, htmlFile string, sample int) string {
	values := url.Values{}
	values.Set("task_id", taskID)
	values.Set("html_file", htmlFile)
	if sample >= 0 {
		values.Set("sample", strconv.Itoa(sample))
	}
	return c.baseURL + "/api/preview/slide?" + values.Encode()
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.baseURL, "/")
}
