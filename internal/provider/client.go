package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"ms-ticket-sync/internal/config"
	"ms-ticket-sync/internal/logger"
)

// Client talks to the ticketing provider's signed API. Every request carries
// the client key, a unix timestamp and an HMAC-SHA256 hash over the sorted
// query string.
type Client struct {
	baseURL    string
	group      string
	clientKey  string
	secret     string
	pageSize   int
	pageFanout int
	retry      RetryPolicy
	client     *http.Client
	logger     *logger.Logger
}

func NewClient(cfg config.ProviderConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		group:      cfg.Group,
		clientKey:  cfg.ClientKey,
		secret:     cfg.Secret,
		pageSize:   cfg.PageSize,
		pageFanout: cfg.PageConcurrency,
		retry: RetryPolicy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		},
		client: &http.Client{Timeout: cfg.RequestTimeout},
		logger: log,
	}
}

// FetchEvents returns all events for the deployment's group with a date at
// or after startDate, ascending by date.
func (c *Client) FetchEvents(ctx context.Context, startDate time.Time) ([]RawEvent, error) {
	filters := url.Values{}
	if !startDate.IsZero() {
		filters.Set("start_date", startDate.Format("2006-01-02"))
	}

	path := fmt.Sprintf("/groups/%s/events", c.group)
	pages, err := c.fetchAll(ctx, path, filters)
	if err != nil {
		return nil, err
	}

	events := make([]RawEvent, 0, len(pages))
	for _, raw := range pages {
		var ev RawEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.logger.Warn("PROVIDER", fmt.Sprintf("Skipping undecodable event record: %v", err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// FetchEvent returns a single event by its provider identifier.
func (c *Client) FetchEvent(ctx context.Context, eventID int64) (*RawEvent, error) {
	path := fmt.Sprintf("/groups/%s/events/%d", c.group, eventID)

	var ev RawEvent
	err := c.retry.Do(ctx, func() error {
		body, err := c.get(ctx, path, url.Values{})
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &ev); err != nil {
			return Permanent(fmt.Errorf("decode event %d: %w", eventID, err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// FetchOrders returns an event's orders, optionally only those purchased
// after since (the incremental sync point).
func (c *Client) FetchOrders(ctx context.Context, eventID int64, since time.Time) ([]RawOrder, error) {
	filters := url.Values{}
	if !since.IsZero() {
		filters.Set("purchased_after", since.UTC().Format(time.RFC3339))
	}

	path := fmt.Sprintf("/groups/%s/events/%d/orders", c.group, eventID)
	pages, err := c.fetchAll(ctx, path, filters)
	if err != nil {
		return nil, err
	}

	orders := make([]RawOrder, 0, len(pages))
	for _, raw := range pages {
		var order RawOrder
		if err := json.Unmarshal(raw, &order); err != nil {
			c.logger.Warn("PROVIDER", fmt.Sprintf("Skipping undecodable order record: %v", err))
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

type pageResult struct {
	page    int
	records []json.RawMessage
	err     error
}

// maxConsecutivePageFailures bounds how long fetchAll keeps probing past
// pages whose retries were exhausted, so a dead tail still terminates.
const maxConsecutivePageFailures = 3

// fetchAll drives pagination. The first page is fetched alone; if it comes
// back full, later pages are fetched in bounded concurrent waves. The loop
// ends on a short page or after two consecutive empty pages. A page whose
// retries are exhausted is logged and excluded; failures are tracked apart
// from empties so a flaky stretch mid-set cannot satisfy the empty-page
// termination rule and truncate pages with data behind it.
func (c *Client) fetchAll(ctx context.Context, path string, filters url.Values) ([]json.RawMessage, error) {
	first, err := c.fetchPage(ctx, path, 1, filters)
	if err != nil {
		return nil, fmt.Errorf("fetch %s page 1: %w", path, err)
	}

	records := first
	if len(first) < c.pageSize {
		return records, nil
	}

	fanout := c.pageFanout
	if fanout < 1 {
		fanout = 1
	}

	next := 2
	emptyRun := 0
	failRun := 0
	for {
		results := make([]pageResult, fanout)
		var wg sync.WaitGroup
		for i := 0; i < fanout; i++ {
			wg.Add(1)
			go func(slot, page int) {
				defer wg.Done()
				recs, err := c.fetchPage(ctx, path, page, filters)
				results[slot] = pageResult{page: page, records: recs, err: err}
			}(i, next+i)
		}
		wg.Wait()

		done := false
		for _, res := range results {
			if done {
				break
			}
			if res.err != nil {
				c.logger.Error("PROVIDER", fmt.Sprintf("Page %d of %s failed, excluding: %v", res.page, path, res.err))
				failRun++
				if failRun >= maxConsecutivePageFailures {
					done = true
				}
				continue
			}
			failRun = 0
			if len(res.records) == 0 {
				emptyRun++
				if emptyRun >= 2 {
					done = true
				}
				continue
			}
			emptyRun = 0
			records = append(records, res.records...)
			if len(res.records) < c.pageSize {
				done = true
			}
		}
		if done {
			return records, nil
		}
		next += fanout
	}
}

// fetchPage fetches one page of a paginated resource under the retry policy.
func (c *Client) fetchPage(ctx context.Context, path string, page int, filters url.Values) ([]json.RawMessage, error) {
	params := url.Values{}
	for key, values := range filters {
		for _, v := range values {
			params.Add(key, v)
		}
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(c.pageSize))

	var records []json.RawMessage
	err := c.retry.Do(ctx, func() error {
		body, err := c.get(ctx, path, params)
		if err != nil {
			return err
		}
		records = records[:0]
		if err := json.Unmarshal(body, &records); err != nil {
			return Permanent(fmt.Errorf("decode page %d of %s: %w", page, path, err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// get signs and issues one GET. 5xx and transport errors are retryable,
// 4xx is permanent.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	signed := url.Values{}
	for key, values := range params {
		for _, v := range values {
			signed.Add(key, v)
		}
	}
	signed.Set("cpk", c.clientKey)
	signed.Set("t", strconv.FormatInt(time.Now().Unix(), 10))
	signed.Set("hash", signQuery(c.secret, path, withoutHash(signed)))

	requestURL := c.baseURL + path + "?" + signed.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("PROVIDER", fmt.Sprintf("Failed to close response body: %v", err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, Permanent(fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	return body, nil
}

// withoutHash copies params minus any hash key: the signature covers
// everything except itself.
func withoutHash(params url.Values) url.Values {
	out := url.Values{}
	for key, values := range params {
		if key == "hash" {
			continue
		}
		for _, v := range values {
			out.Add(key, v)
		}
	}
	return out
}
