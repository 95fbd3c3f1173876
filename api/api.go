package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/acmeproducts/skuflow/api/middleware"
	"github.com/acmeproducts/skuflow/config"
	"github.com/acmeproducts/skuflow/internal/apierror"
	"github.com/acmeproducts/skuflow/internal/hooks"
	"github.com/acmeproducts/skuflow/model"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service is what the HTTP layer needs from *skuflow.Skuflow.
type Service interface {
	UploadCSV(ctx context.Context, filename string, reader io.Reader) (string, error)
	ImportStatus(jobID string) (string, error)
	Subscribe(ctx context.Context, jobID string) (<-chan model.ProgressEvent, func() error, error)

	CreateProduct(ctx context.Context, product model.Product) (model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	GetAllProducts(ctx context.Context, limit, offset int) ([]model.Product, error)
	UpdateProduct(ctx context.Context, id int64, update model.ProductUpdate) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	CreateWebhook(ctx context.Context, webhook model.Webhook) (model.Webhook, error)
	GetWebhook(ctx context.Context, id string) (*model.Webhook, error)
	GetAllWebhooks(ctx context.Context, limit, offset int) ([]model.Webhook, error)
	UpdateWebhook(ctx context.Context, id string, update model.WebhookUpdate) (*model.Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
	TestWebhook(ctx context.Context, id string) (hooks.DeliveryOutcome, error)
}

type Api struct {
	skuflow Service
	router  *gin.Engine
	limits  *middleware.RouteLimits
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/upload", a.limits.Upload(), a.UploadCSV)
	// Progress streams stay open for the whole import and are not rate limited.
	router.GET("/progress/:job_id", a.StreamProgress)

	limited := router.Group("", a.limits.API())
	limited.GET("/imports/:job_id", a.GetImportStatus)

	limited.POST("/products", a.CreateProduct)
	limited.GET("/products/:id", a.GetProduct)
	limited.GET("/products", a.GetAllProducts)
	limited.PUT("/products/:id", a.UpdateProduct)
	limited.DELETE("/products/:id", a.DeleteProduct)

	limited.POST("/webhooks", a.CreateWebhook)
	limited.GET("/webhooks/:id", a.GetWebhook)
	limited.GET("/webhooks", a.GetAllWebhooks)
	limited.PUT("/webhooks/:id", a.UpdateWebhook)
	limited.DELETE("/webhooks/:id", a.DeleteWebhook)
	limited.POST("/webhooks/:id/test", a.TestWebhook)

	return a.router
}

func NewAPI(s Service) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}

	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{skuflow: s, router: r, limits: middleware.NewRouteLimits(conf.RateLimit)}
}

// respondError writes err with the status its apierror code maps to.
func respondError(c *gin.Context, err error) {
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// pagination reads limit and offset query parameters.
func pagination(c *gin.Context) (int, int, error) {
	limit, offset := defaultLimit, 0

	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return 0, 0, apierror.NewAPIError(apierror.ErrBadRequest, "limit must be a positive integer", nil)
		}
		limit = min(v, maxLimit)
	}

	if raw := c.Query("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, apierror.NewAPIError(apierror.ErrBadRequest, "offset must be a non-negative integer", nil)
		}
		offset = v
	}

	return limit, offset, nil
}
