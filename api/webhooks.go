package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/acmeproducts/skuflow/api/model"
)

// CreateWebhook handles the registration of a new webhook.
func (a Api) CreateWebhook(c *gin.Context) {
	var newWebhook model2.CreateWebhook
	if err := c.ShouldBindJSON(&newWebhook); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newWebhook.ValidateCreateWebhook(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.skuflow.CreateWebhook(c.Request.Context(), newWebhook.ToWebhook())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model2.NewWebhookResponse(resp))
}

// GetWebhook retrieves a specific webhook by ID.
func (a Api) GetWebhook(c *gin.Context) {
	resp, err := a.skuflow.GetWebhook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model2.NewWebhookResponse(*resp))
}

// GetAllWebhooks lists webhooks with their delivery statistics.
func (a Api) GetAllWebhooks(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := a.skuflow.GetAllWebhooks(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model2.NewWebhookResponses(resp))
}

// UpdateWebhook handles updating an existing webhook.
func (a Api) UpdateWebhook(c *gin.Context) {
	var update model2.UpdateWebhook
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := update.ValidateUpdateWebhook(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.skuflow.UpdateWebhook(c.Request.Context(), c.Param("id"), update.ToWebhookUpdate())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model2.NewWebhookResponse(*resp))
}

// DeleteWebhook removes a webhook by ID.
func (a Api) DeleteWebhook(c *gin.Context) {
	if err := a.skuflow.DeleteWebhook(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "webhook deleted successfully"})
}

// TestWebhook sends a synthetic event to the webhook right away and reports
// what the endpoint answered.
func (a Api) TestWebhook(c *gin.Context) {
	outcome, err := a.skuflow.TestWebhook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model2.WebhookTestResult{
		Success:        outcome.Success,
		StatusCode:     outcome.StatusCode,
		ResponseTimeMs: outcome.ResponseTimeMs,
		Error:          outcome.Error,
		ResponseBody:   outcome.ResponseBody,
	})
}
