package skuflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/acmeproducts/skuflow/internal/apierror"
	"github.com/acmeproducts/skuflow/model"
)

// UploadCSV writes an uploaded file to the upload directory, announces the job
// with an uploaded event and queues it for ingestion. It returns the new job id.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - filename string: The client supplied file name. Only .csv is accepted.
// - reader io.Reader: The file contents, streamed to disk.
//
// Returns:
// - string: The id of the queued import job.
// - error: An error if the file is rejected, cannot be written or queued.
func (s *Skuflow) UploadCSV(ctx context.Context, filename string, reader io.Reader) (string, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return "", apierror.NewAPIError(apierror.ErrBadRequest, "Only CSV allowed", nil)
	}

	jobID := uuid.New().String()
	path, err := s.saveUpload(jobID, reader)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to store upload", err)
	}

	s.publishProgress(ctx, jobID, model.NewUploadedEvent())

	if err := s.queue.EnqueueImport(ctx, jobID, path); err != nil {
		s.removeUpload(path)
		return "", err
	}

	logrus.WithFields(logrus.Fields{"job_id": jobID, "filename": filename}).Info("CSV upload queued")
	return jobID, nil
}

// saveUpload streams reader into {upload_dir}/{job_id}.csv.
func (s *Skuflow) saveUpload(jobID string, reader io.Reader) (string, error) {
	dir := s.config.Import.UploadDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating upload directory: %w", err)
	}

	path := filepath.Join(dir, jobID+".csv")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating upload file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		s.removeUpload(path)
		return "", fmt.Errorf("error writing upload file: %w", err)
	}

	if err := file.Close(); err != nil {
		s.removeUpload(path)
		return "", fmt.Errorf("error closing upload file: %w", err)
	}
	return path, nil
}

func (s *Skuflow) removeUpload(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.WithField("path", path).WithError(err).Warn("failed to remove upload")
	}
}

// ImportStatus reports the queue state of an import job, for example
// "pending", "active", "retry", "archived" or "completed".
func (s *Skuflow) ImportStatus(jobID string) (string, error) {
	info, err := s.queue.GetImportTask(jobID)
	if err != nil {
		return "", err
	}
	return info.State.String(), nil
}
