package commerce

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitrina/stockbot/internal/domain/integration"
	"github.com/vitrina/stockbot/internal/infrastructure/telemetry"
)

// maxResponseSize limits response bodies to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024

// maxInlineImageSize is the largest image attached inline as base64; bigger
// assets go through the staged upload protocol instead.
const maxInlineImageSize = 2 * 1024 * 1024

// ShopifyAdapter implements the Publisher and StagedUploader ports against
// the Shopify Admin API. Product creation and inventory levels go through the
// REST API; the staged file upload protocol goes through GraphQL.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
	retry      RetryPolicy
	logger     *zap.Logger
	metrics    *telemetry.Metrics

	pollInterval time.Duration
	pollAttempts int
}

// NewShopifyAdapter creates an adapter for the configured store.
func NewShopifyAdapter(config *ShopifyConfig, logger *zap.Logger, metrics *telemetry.Metrics) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShopifyAdapter{
		config:       config,
		httpClient:   &http.Client{Timeout: config.timeout()},
		retry:        DefaultRetryPolicy(),
		logger:       logger.Named("shopify"),
		metrics:      metrics,
		pollInterval: defaultPollDelay,
		pollAttempts: defaultPollAttempts,
	}, nil
}

// Publish creates the product and then sets per-location inventory.
//
// Step 1 collapses the submitted (branch, size, stock) triples to the unique
// set of sizes and creates one variant per size, all at zero stock; any
// failure here aborts the publish. Step 2 walks the original triples and sets
// each branch location's level for the matching variant; unresolved mappings
// are skipped and per-item failures do not abort the remaining items.
func (a *ShopifyAdapter) Publish(ctx context.Context, pub *integration.ProductPublication) error {
	uniqueSizes := uniqueSizesInOrder(pub.Variants)
	if len(uniqueSizes) == 0 {
		return fmt.Errorf("%w: publication has no variants", integration.ErrBackendRejected)
	}

	price := decimal.NewFromInt(pub.Price)
	payload := productCreateRequest{
		Product: productPayload{
			Title:       pub.Description,
			BodyHTML:    fmt.Sprintf("Referencia: %s", pub.Reference),
			ProductType: pub.Category,
			Status:      "active",
		},
	}
	for _, size := range uniqueSizes {
		payload.Product.Variants = append(payload.Product.Variants, variantPayload{
			Option1:             size,
			Price:               price.String(),
			SKU:                 fmt.Sprintf("%s-%s", pub.Reference, size),
			InventoryManagement: "shopify",
		})
	}
	if len(pub.Media.Data) > 0 {
		image := imagePayload{Filename: fmt.Sprintf("%s.jpg", pub.Reference)}
		if len(pub.Media.Data) > maxInlineImageSize {
			url, err := a.UploadStagedFile(ctx, pub.Media, image.Filename)
			if err != nil {
				// Publish the product anyway, the image can be added manually.
				a.logger.Warn("staged image upload failed, publishing without image", zap.Error(err))
			} else {
				image.Src = url
			}
		} else {
			image.Attachment = base64.StdEncoding.EncodeToString(pub.Media.Data)
		}
		if image.Attachment != "" || image.Src != "" {
			payload.Product.Images = []imagePayload{image}
		}
	}

	a.logger.Info("creating product",
		zap.String("reference", pub.Reference),
		zap.Int("unique_sizes", len(uniqueSizes)),
	)

	var created productCreateResponse
	if err := a.doREST(ctx, "product_create", a.config.ProductCreateURL(), payload, &created); err != nil {
		return fmt.Errorf("product creation failed: %w", err)
	}

	variantsBySize := make(map[string]createdVariant, len(created.Product.Variants))
	for _, v := range created.Product.Variants {
		variantsBySize[v.Option1] = v
	}

	for _, local := range pub.Variants {
		variant, ok := variantsBySize[local.Size]
		if !ok || variant.InventoryItemID == 0 {
			continue
		}
		locationID, ok := a.config.LocationIDs[local.BranchID]
		if !ok {
			continue
		}

		level := inventorySetRequest{
			InventoryItemID: variant.InventoryItemID,
			LocationID:      locationID,
			Available:       local.Stock,
		}
		if err := a.doREST(ctx, "inventory_set", a.config.InventorySetURL(), level, nil); err != nil {
			// Best-effort inventory propagation: log and keep going.
			a.logger.Error("failed to set inventory level",
				zap.String("size", local.Size),
				zap.String("location_id", locationID),
				zap.Error(err),
			)
			continue
		}
		a.logger.Debug("inventory level set",
			zap.String("size", local.Size),
			zap.String("location_id", locationID),
			zap.Int("available", local.Stock),
		)
	}

	a.logger.Info("product published",
		zap.Int64("product_id", created.Product.ID),
		zap.String("reference", pub.Reference),
	)
	return nil
}

// doREST posts a JSON payload and decodes the response into out when non-nil.
func (a *ShopifyAdapter) doREST(ctx context.Context, operation, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("shopify: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.metrics.BackendRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("%w: %v", integration.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		a.metrics.BackendRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("shopify: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		a.metrics.BackendRequests.WithLabelValues(operation, "rejected").Inc()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: HTTP %d", integration.ErrBackendUnavailable, resp.StatusCode)
		}
		return fmt.Errorf("%w: HTTP %d: %s", integration.ErrBackendRejected, resp.StatusCode, truncate(respBody, 512))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			a.metrics.BackendRequests.WithLabelValues(operation, "error").Inc()
			return fmt.Errorf("%w: %v", integration.ErrBackendInvalidResponse, err)
		}
	}

	a.metrics.BackendRequests.WithLabelValues(operation, "ok").Inc()
	return nil
}

func uniqueSizesInOrder(variants []integration.VariantStock) []string {
	seen := make(map[string]struct{}, len(variants))
	var sizes []string
	for _, v := range variants {
		if _, dup := seen[v.Size]; dup {
			continue
		}
		seen[v.Size] = struct{}{}
		sizes = append(sizes, v.Size)
	}
	return sizes
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var (
	_ integration.Publisher      = (*ShopifyAdapter)(nil)
	_ integration.StagedUploader = (*ShopifyAdapter)(nil)
)
