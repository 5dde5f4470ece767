// Package api is the REST client for the backend transaction-queue endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"queuebot/internal/config"
	"queuebot/internal/model"
)

// HeaderRequestID carries a per-request id the backend echoes into its logs.
const HeaderRequestID = "X-Request-ID"

// Client talks to the backend queue listing and action endpoints.
type Client struct {
	http       *resty.Client
	queuesPath string
	actionPath string
}

// NewClient creates a Client from the API configuration.
func NewClient(cfg *config.APIConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}

	return &Client{
		http:       httpClient,
		queuesPath: cfg.QueuesPath,
		actionPath: cfg.ActionPath,
	}
}

// ListQueues fetches one page of queue records.
func (c *Client) ListQueues(ctx context.Context, params model.ListParams) (*model.QueuePage, error) {
	var page model.QueuePage
	start := time.Now()

	resp, err := c.request(ctx).
		SetQueryParams(listQuery(params)).
		SetResult(&page).
		Get(c.queuesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	log.Debug().
		Str("filter", string(params.Filter)).
		Int("page", params.Page).
		Int("count", page.Count).
		Int("results", len(page.Results)).
		Dur("took", time.Since(start)).
		Msg("Queue page fetched")

	return &page, nil
}

// PerformAction posts an action for a queue record and returns the updated record.
func (c *Client) PerformAction(ctx context.Context, req model.ActionRequest) (*model.TransactionQueue, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var record model.TransactionQueue
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&record).
		Post(c.actionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to perform %s on queue %d: %w", req.Type, req.TxnID, err)
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	return &record, nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader(HeaderRequestID, uuid.NewString())
}

// listQuery builds the listing query string, omitting empty filters.
func listQuery(p model.ListParams) map[string]string {
	q := make(map[string]string)
	if p.Filter != "" {
		q["type"] = string(p.Filter)
	}
	if p.Page > 0 {
		q["page"] = strconv.Itoa(p.Page)
	}
	if p.PageSize > 0 {
		q["page_size"] = strconv.Itoa(p.PageSize)
	}
	if p.Search != "" {
		q["search"] = p.Search
	}
	if p.Status != "" {
		q["status"] = string(p.Status)
	}
	if p.DateFrom != "" {
		q["date_from"] = p.DateFrom
	}
	if p.DateTo != "" {
		q["date_to"] = p.DateTo
	}
	return q
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
