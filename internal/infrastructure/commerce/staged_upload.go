package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vitrina/stockbot/internal/domain/integration"
)

const (
	defaultPollDelay    = 3 * time.Second
	defaultPollAttempts = 10
)

const (
	stagedUploadsCreateMutation = `mutation stagedUploadsCreate($input: [StagedUploadInput!]!) { stagedUploadsCreate(input: $input) { stagedTargets { url, resourceUrl, parameters { name, value } } userErrors { field, message } } }`
	fileCreateMutation          = `mutation fileCreate($files: [FileCreateInput!]!) { fileCreate(files: $files) { files { id ... on MediaImage { image { url } } } userErrors { field, message } } }`
	fileStatusQuery             = `query fileStatus($id: ID!) { node(id: $id) { ... on MediaImage { status, image { url } } } }`
	productImageQuery           = `query productBySKU($query: String!) { products(first: 1, query: $query) { edges { node { id images(first: 1) { edges { node { id } } } } } } }`
)

// UploadStagedFile pushes a binary asset through the staged-upload protocol:
// request an upload target, transfer the bytes, register the file record,
// then poll until the backend reports the file ready and resolves its URL.
// Every backend call except the raw byte transfer goes through the shared
// retry policy. The returned URL is empty on any failure.
func (a *ShopifyAdapter) UploadStagedFile(ctx context.Context, media integration.MediaPayload, filename string) (string, error) {
	log := a.logger.With(zap.String("filename", filename))

	// Phase 1: request a staged upload target.
	var staged stagedUploadsCreateData
	err := a.doGraphQL(ctx, "staged_uploads_create", stagedUploadsCreateMutation, map[string]any{
		"input": map[string]any{
			"resource":   "FILE",
			"filename":   filename,
			"mimeType":   media.MimeType,
			"fileSize":   strconv.Itoa(len(media.Data)),
			"httpMethod": "POST",
		},
	}, &staged)
	if err != nil {
		return "", fmt.Errorf("staged upload create failed: %w", err)
	}
	result := staged.StagedUploadsCreate
	if len(result.UserErrors) > 0 {
		return "", fmt.Errorf("%w: %s", integration.ErrBackendRejected, result.UserErrors[0].Message)
	}
	if len(result.StagedTargets) == 0 {
		return "", fmt.Errorf("%w: no staged upload target returned", integration.ErrBackendInvalidResponse)
	}
	target := result.StagedTargets[0]
	log.Debug("staged upload target acquired", zap.String("resource_url", target.ResourceURL))

	// Phase 2: transfer the raw bytes to the temporary target.
	if err := a.transferBytes(ctx, target, media, filename); err != nil {
		return "", fmt.Errorf("staged upload transfer failed: %w", err)
	}

	// Phase 3: register the uploaded resource as a file record.
	var fileCreate fileCreateData
	err = a.doGraphQL(ctx, "file_create", fileCreateMutation, map[string]any{
		"files": map[string]any{
			"alt":            filename,
			"contentType":    "IMAGE",
			"originalSource": target.ResourceURL,
		},
	}, &fileCreate)
	if err != nil {
		return "", fmt.Errorf("file record creation failed: %w", err)
	}
	if len(fileCreate.FileCreate.UserErrors) > 0 {
		return "", fmt.Errorf("%w: %s", integration.ErrBackendRejected, fileCreate.FileCreate.UserErrors[0].Message)
	}
	if len(fileCreate.FileCreate.Files) == 0 || fileCreate.FileCreate.Files[0].ID == "" {
		return "", fmt.Errorf("%w: file record has no id", integration.ErrBackendInvalidResponse)
	}
	fileID := fileCreate.FileCreate.Files[0].ID
	log.Debug("file record created", zap.String("file_id", fileID))

	// Phase 4: poll until the backend finishes processing the file.
	for attempt := 1; attempt <= a.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(a.pollInterval):
		}

		var status fileStatusData
		if err := a.doGraphQL(ctx, "file_status", fileStatusQuery, map[string]any{"id": fileID}, &status); err != nil {
			return "", fmt.Errorf("file status check failed: %w", err)
		}
		node := status.Node
		if node == nil {
			continue
		}
		switch node.Status {
		case "READY":
			if node.Image != nil && node.Image.URL != "" {
				log.Info("staged upload ready", zap.String("url", node.Image.URL))
				return node.Image.URL, nil
			}
		case "FAILED":
			return "", integration.ErrUploadFailed
		}
	}

	return "", integration.ErrUploadTimedOut
}

// ImageExistsForReference reports whether a product with the given reference
// already carries an image, so re-published references can skip the upload.
func (a *ShopifyAdapter) ImageExistsForReference(ctx context.Context, reference string) bool {
	var data productImageQueryData
	err := a.doGraphQL(ctx, "product_image_query", productImageQuery, map[string]any{
		"query": fmt.Sprintf("sku:%s", reference),
	}, &data)
	if err != nil {
		return false
	}
	edges := data.Products.Edges
	return len(edges) > 0 && len(edges[0].Node.Images.Edges) > 0
}

// transferBytes posts the file to the presigned target as a multipart form,
// carrying the target's parameters first and the file part last.
func (a *ShopifyAdapter) transferBytes(ctx context.Context, target stagedTarget, media integration.MediaPayload, filename string) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for _, p := range target.Parameters {
		if err := form.WriteField(p.Name, p.Value); err != nil {
			return fmt.Errorf("shopify: failed to write form field: %w", err)
		}
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("shopify: failed to create form file: %w", err)
	}
	if _, err := part.Write(media.Data); err != nil {
		return fmt.Errorf("shopify: failed to write file bytes: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("shopify: failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, &body)
	if err != nil {
		return fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d", integration.ErrBackendRequestFailed, resp.StatusCode)
	}
	return nil
}

// doGraphQL posts a GraphQL request through the retry policy and decodes the
// data payload into out. A GraphQL errors array is a structural failure and
// is never retried; a transport error or a missing data payload is transient.
func (a *ShopifyAdapter) doGraphQL(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	return a.retry.Do(ctx, func() error {
		body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
		if err != nil {
			return Permanent(fmt.Errorf("shopify: failed to marshal request: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.GraphQLURL(), bytes.NewReader(body))
		if err != nil {
			return Permanent(fmt.Errorf("shopify: failed to create request: %w", err))
		}
		req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)
		req.Header.Set("Content-Type", "application/json")

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
			a.metrics.BackendRequests.WithLabelValues(operation, "error").Inc()
			return fmt.Errorf("%w: HTTP %d", integration.ErrBackendUnavailable, resp.StatusCode)
		}

		var envelope graphQLResponse
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			a.metrics.BackendRequests.WithLabelValues(operation, "error").Inc()
			return fmt.Errorf("%w: %v", integration.ErrBackendInvalidResponse, err)
		}
		if len(envelope.Errors) > 0 {
			// Structural error reported by the backend, retrying cannot help.
			a.metrics.BackendRequests.WithLabelValues(operation, "rejected").Inc()
			return Permanent(fmt.Errorf("%w: %s", integration.ErrBackendRejected, envelope.Errors[0].Message))
		}
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			// Success status with an empty payload, treat as transient.
			a.metrics.BackendRequests.WithLabelValues(operation, "error").Inc()
			return fmt.Errorf("%w: missing data payload", integration.ErrBackendInvalidResponse)
		}

		if err := json.Unmarshal(envelope.Data, out); err != nil {
			a.metrics.BackendRequests.WithLabelValues(operation, "error").Inc()
			return Permanent(fmt.Errorf("%w: %v", integration.ErrBackendInvalidResponse, err))
		}
		a.metrics.BackendRequests.WithLabelValues(operation, "ok").Inc()
		return nil
	})
}
