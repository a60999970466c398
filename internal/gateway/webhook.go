package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aniladanir/lead-funnel/internal/domain"
	"github.com/aniladanir/retry"
	"github.com/google/uuid"
)

// WebhookGateway posts messages to a relay endpoint that talks to the carrier.
type WebhookGateway struct {
	url        string
	retrier    *retry.Retrier
	httpClient *http.Client
	logger     *slog.Logger
}

func NewWebhookGateway(url string, maxRetryOnFail *int, logger *slog.Logger) (*WebhookGateway, error) {
	// initialize retrier
	retrierOpts := make([]retry.Option, 0)
	if maxRetryOnFail != nil {
		retrierOpts = append(retrierOpts, retry.WithMaxAttemps(*maxRetryOnFail))
	}
	retrier, err := retry.New(retrierOpts...)
	if err != nil {
		return nil, fmt.Errorf("encountered error when initializing retrier: %w", err)
	}

	return &WebhookGateway{
		url:     url,
		retrier: retrier,
		httpClient: &http.Client{
			Timeout: time.Second * 5,
		},
		logger: logger,
	}, nil
}

func (g *WebhookGateway) Send(ctx context.Context, msg domain.OutboundMessage) (domain.Receipt, error) {
	var (
		receipt domain.Receipt
		sendErr error
	)

	retryFunc := func(attempt int) (terminate bool) {
		retryLogger := g.logger.With(slog.Int("attempt", attempt), slog.String("channel", string(msg.Channel)))

		resp, err := g.doMsgRequest(ctx, msg)
		if err != nil {
			retryLogger.Error("failed to send request", "error", err.Error())
			sendErr = err
			return false
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			// 5XX status code indicates server error, try retry
			retryLogger.Error("response indicates error",
				"requestId", resp.Header.Get("X-Request-ID"),
				"statusCode", resp.StatusCode)
			sendErr = fmt.Errorf("relay responded with status %d", resp.StatusCode)
			return false
		case resp.StatusCode >= http.StatusBadRequest:
			// 4XX indicates client error, no need to retry
			retryLogger.Error("response indicates error",
				"requestId", resp.Header.Get("X-Request-ID"),
				"statusCode", resp.StatusCode)
			sendErr = fmt.Errorf("relay rejected message with status %d", resp.StatusCode)
			return true
		}

		var result domain.WebhookResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			retryLogger.Warn("failed to decode relay response", "error", err.Error())
		}
		receipt.ProviderID = result.MessageID
		sendErr = nil
		retryLogger.Info("message is successfuly sent", "requestId", resp.Header.Get("X-Request-ID"))
		return true
	}

	retrySuccess := <-g.retrier.Retry(ctx, retryFunc, true)
	if !retrySuccess && sendErr == nil {
		sendErr = errors.New("relay retries exhausted")
	}
	if sendErr != nil {
		return domain.Receipt{}, sendErr
	}
	return receipt, nil
}

func (g *WebhookGateway) doMsgRequest(ctx context.Context, msg domain.OutboundMessage) (*http.Response, error) {
	payload := map[string]string{
		"channel": string(msg.Channel),
		"to":      msg.To,
		"subject": msg.Subject,
		"content": msg.Body,
	}
	jsonPayload, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Add("X-Request-ID", uuid.NewString())

	return g.httpClient.Do(req)
}
