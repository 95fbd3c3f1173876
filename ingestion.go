/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package skuflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/acmeproducts/skuflow/config"
	"github.com/acmeproducts/skuflow/model"
)

// IngestionErrorKind classifies why an import failed.
type IngestionErrorKind string

const (
	// EmptyInput means the file has no data rows. It is never retried.
	EmptyInput IngestionErrorKind = "empty_input"
	// TransientStorageFailure means a batch could not be written.
	TransientStorageFailure IngestionErrorKind = "storage_failure"
	// ReadFailure means the file could not be opened or read.
	ReadFailure IngestionErrorKind = "read_failure"
)

var errEmptyCSV = errors.New("empty CSV file")

// IngestionError is the error carried by a failed ImportResult.
type IngestionError struct {
	Kind IngestionErrorKind
	Err  error
}

func (e *IngestionError) Error() string {
	return e.Err.Error()
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether running the job again could succeed.
func (e *IngestionError) Retryable() bool {
	return e.Kind != EmptyInput
}

// ImportResult is the terminal view of one import run.
type ImportResult struct {
	model.ImportJob
	// Imported counts the rows handed to the upsert engine.
	Imported int   `json:"imported"`
	Err      error `json:"-"`
}

// ImportCSV runs one ingestion job to a terminal state: it streams the file at
// path in batches into the product store and publishes progress on the job's
// topic. On success it dispatches csv.completed.
//
// Rows without a sku are counted but never written. A price that does not
// parse becomes 0.00 or drops the row, depending on import.invalid_price_policy.
func (s *Skuflow) ImportCSV(ctx context.Context, jobID, path string) ImportResult {
	ctx, span := otel.Tracer("skuflow.ingestion").Start(ctx, "Import CSV")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID))

	result := ImportResult{ImportJob: model.ImportJob{
		JobID:      jobID,
		SourcePath: path,
		State:      model.ImportStatusProcessing,
	}}

	fail := func(kind IngestionErrorKind, err error) ImportResult {
		span.RecordError(err)
		result.State = model.ImportStatusError
		result.Err = &IngestionError{Kind: kind, Err: err}
		s.publishProgress(ctx, jobID, model.NewErrorEvent(err.Error()))
		return result
	}

	total, err := countDataLines(path)
	if err != nil {
		return fail(ReadFailure, err)
	}
	if total == 0 {
		return fail(EmptyInput, errEmptyCSV)
	}
	result.TotalRows = total

	rows, err := openProductCSV(path, s.config.Import.InvalidPricePolicy == config.PricePolicySkip)
	if err != nil {
		if errors.Is(err, errEmptyCSV) {
			return fail(EmptyInput, err)
		}
		return fail(ReadFailure, err)
	}
	defer rows.Close()

	logger := logrus.WithFields(logrus.Fields{"job_id": jobID, "total_rows": total})
	logger.Info("Starting CSV import")

	batchSize := s.config.Import.BatchSize
	batch := make([]model.Product, 0, batchSize)

	for {
		product, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, errRowSkipped) {
			return fail(ReadFailure, fmt.Errorf("error reading row %d: %w", result.ProcessedRows+1, err))
		}

		result.ProcessedRows++
		if err != nil {
			logger.WithField("row", result.ProcessedRows).Debug(err)
			continue
		}

		batch = append(batch, product)
		if len(batch) < batchSize {
			continue
		}

		if err := s.datasource.UpsertProducts(ctx, batch); err != nil {
			return fail(TransientStorageFailure, err)
		}
		result.Imported += len(batch)
		batch = make([]model.Product, 0, batchSize)

		s.publishProgress(ctx, jobID, model.NewProgressEvent(
			model.ImportStatusProcessing,
			result.ProcessedRows,
			total,
			progressPercent(result.ProcessedRows, total),
		))
	}

	if result.ProcessedRows == 0 {
		return fail(EmptyInput, errEmptyCSV)
	}

	if len(batch) > 0 {
		if err := s.datasource.UpsertProducts(ctx, batch); err != nil {
			return fail(TransientStorageFailure, err)
		}
		result.Imported += len(batch)
	}

	result.State = model.ImportStatusComplete
	s.publishProgress(ctx, jobID, model.NewProgressEvent(model.ImportStatusComplete, result.ProcessedRows, total, 100))

	logger.WithFields(logrus.Fields{
		"processed": result.ProcessedRows,
		"imported":  result.Imported,
	}).Info("CSV import complete")

	s.dispatchEvent(ctx, model.EventCSVCompleted, map[string]interface{}{
		"job_id":         jobID,
		"total_imported": result.Imported,
		"completed_at":   time.Now().UTC().Format(time.RFC3339),
	})

	return result
}

// progressPercent is processed/total as a percentage rounded to two decimals,
// capped at 100 because total is only an estimate.
func progressPercent(processed, total int) float64 {
	if total <= 0 {
		return 0
	}
	percent := math.Round(float64(processed)/float64(total)*100*100) / 100
	return math.Min(percent, 100)
}

// publishProgress never fails the caller. Nobody listening is the normal case.
func (s *Skuflow) publishProgress(ctx context.Context, jobID string, event model.ProgressEvent) {
	if err := s.progress.Publish(ctx, jobID, event); err != nil {
		logrus.WithFields(logrus.Fields{"job_id": jobID, "status": event.Status}).WithError(err).Warn("failed to publish progress")
	}
}

// dispatchEvent fans an event out to webhook subscribers. Failures are logged
// and never reach the caller.
func (s *Skuflow) dispatchEvent(ctx context.Context, eventType string, payload interface{}) {
	scheduled, err := s.dispatcher.Dispatch(ctx, eventType, payload)
	if err != nil {
		logrus.WithField("event_type", eventType).WithError(err).Error("failed to dispatch webhook event")
	}
	if scheduled > 0 {
		logrus.WithFields(logrus.Fields{"event_type": eventType, "scheduled": scheduled}).Debug("webhook deliveries scheduled")
	}
}
