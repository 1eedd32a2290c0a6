// Package telegram sends attachments through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"dropwatch/internal/logger"
	"dropwatch/internal/model"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrMissingCredentials = errors.New("telegram: token and chat id are required")

// APIError is a rejected Bot API call.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram: %s failed with status %d", e.Method, e.StatusCode)
	}

	return fmt.Sprintf("telegram: %s failed with status %d: %s", e.Method, e.StatusCode, e.Description)
}

type Options struct {
	APIURL    string
	Timeout   time.Duration
	RetryMax  int
	RateLimit float64 // requests per second, <= 0 for no limit
	Burst     int
}

type Client struct {
	apiURL  string
	http    *retryablehttp.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func New(opts Options, log *zap.Logger) *Client {
	log = logger.OrNop(log)

	hc := retryablehttp.NewClient()
	hc.RetryMax = max(opts.RetryMax, 0)
	hc.HTTPClient.Timeout = opts.Timeout
	hc.Logger = &leveledLogger{s: log.Sugar()}
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Client{
		apiURL:  strings.TrimSuffix(opts.APIURL, "/"),
		http:    hc,
		limiter: rate.NewLimiter(limit, max(opts.Burst, 1)),
		log:     log,
	}
}

func (c *Client) SendPhoto(ctx context.Context, dst model.Destination, file model.Attachment) error {
	return c.send(ctx, "sendPhoto", "photo", dst, file)
}

func (c *Client) SendVideo(ctx context.Context, dst model.Destination, file model.Attachment) error {
	return c.send(ctx, "sendVideo", "video", dst, file)
}

func (c *Client) SendDocument(ctx context.Context, dst model.Destination, file model.Attachment) error {
	return c.send(ctx, "sendDocument", "document", dst, file)
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (c *Client) send(ctx context.Context, method, field string, dst model.Destination, file model.Attachment) error {
	if dst.Token == "" || dst.ChatID == "" {
		return ErrMissingCredentials
	}

	body, contentType, err := encodeForm(dst.ChatID, field, file)
	if err != nil {
		return fmt.Errorf("telegram: failed to encode %s: %w", method, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiURL, dst.Token, method)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return redact(fmt.Errorf("telegram: failed to build request: %w", err), dst.Token)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return redact(err, dst.Token)
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	success := resp.StatusCode >= 200 && resp.StatusCode <= 299

	// Error bodies are read best effort; only a 2xx body must decode.
	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && success {
		return fmt.Errorf("telegram: failed to decode %s response: %w", method, err)
	}

	if !success || !result.OK {
		return &APIError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			Description: result.Description,
		}
	}

	c.log.Debug("telegram request ok",
		zap.String("method", method),
		zap.String("file", file.Name),
		zap.Int("bytes", len(file.Data)))

	return nil
}

func encodeForm(chatID, field string, file model.Attachment) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", chatID); err != nil {
		return nil, "", err
	}

	part, err := w.CreateFormFile(field, file.Name)
	if err != nil {
		return nil, "", err
	}

	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// redact strips the bot token out of transport errors, which carry the
// request URL.
func redact(err error, token string) error {
	if urlErr, ok := errors.AsType[*url.Error](err); ok {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, token, "<token>")
	}

	return err
}
