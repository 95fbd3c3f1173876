package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/acmeproducts/skuflow/internal/progress"
)

// UploadCSV accepts a multipart "file" field and queues it for ingestion.
func (a Api) UploadCSV(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	jobID, err := a.skuflow.UploadCSV(c.Request.Context(), header.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// StreamProgress relays a job's progress events as server-sent events until a
// terminal event is sent or the client goes away.
func (a Api) StreamProgress(c *gin.Context) {
	jobID := c.Param("job_id")

	events, closeSub, err := a.skuflow.Subscribe(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer func() {
		if err := closeSub(); err != nil {
			logrus.WithField("job_id", jobID).WithError(err).Debug("closing progress subscription")
		}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
				return
			}
			c.Writer.Flush()

			if progress.IsTerminal(event.Status) {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

// GetImportStatus returns the queue's view of an import job.
func (a Api) GetImportStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	state, err := a.skuflow.ImportStatus(jobID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "state": state})
}
