package deploygate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/session-monitor/internal/application/dto"
)

// Client опрашивает /api/v1/circuits/can-deploy работающего сервиса
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) CanDeploy(ctx context.Context, maxActiveSessions int, requester string) (*dto.CanDeployDTO, error) {
	query := url.Values{}
	query.Set("maxActiveSessions", strconv.Itoa(maxActiveSessions))
	if requester != "" {
		query.Set("requester", requester)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/circuits/can-deploy?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build can-deploy request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can-deploy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("can-deploy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result dto.CanDeployDTO
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode can-deploy response: %w", err)
	}
	return &result, nil
}

// WaitUntilSafe проверяет сразу и повторяет каждые poll, пока не станет можно
// или не истечет ctx. При истечении возвращает последний ответ без ошибки.
func (c *Client) WaitUntilSafe(
	ctx context.Context,
	maxActiveSessions int,
	requester string,
	poll time.Duration,
) (*dto.CanDeployDTO, error) {
	var last *dto.CanDeployDTO

	for {
		result, err := c.CanDeploy(ctx, maxActiveSessions, requester)
		switch {
		case err == nil:
			last = result
			if result.CanDeploy {
				return result, nil
			}
		case ctx.Err() != nil && last != nil:
			return last, nil
		default:
			return nil, err
		}

		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, nil
		case <-timer.C:
		}
	}
}
