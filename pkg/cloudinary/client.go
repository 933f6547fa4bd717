package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tiendamx/tienda-backend/pkg/config"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
	"github.com/tiendamx/tienda-backend/pkg/logger"
)

const defaultBaseURL = "https://api.cloudinary.com"

var (
	errCredentialsRequired = errors.New("cloudinary cloud name, api key, and api secret are required")
	errLoggerRequired      = errors.New("cloudinary logger is required")
)

// Client uploads media assets through Cloudinary's signed upload API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cloudName  string
	apiKey     string
	apiSecret  string
	folder     string
	logger     *logger.Logger
	now        func() time.Time
}

// Option customizes the client, mainly for tests.
type Option func(*Client)

// WithBaseURL overrides the API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithClock overrides the timestamp source used for signing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient initializes the Cloudinary wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.CloudinaryConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.CloudName) == "" ||
		strings.TrimSpace(cfg.APIKey) == "" ||
		strings.TrimSpace(cfg.APISecret) == "" {
		return nil, errCredentialsRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		cloudName:  strings.TrimSpace(cfg.CloudName),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		apiSecret:  strings.TrimSpace(cfg.APISecret),
		folder:     cfg.Folder,
		logger:     logg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	logg.Info(ctx, "cloudinary client initialized")
	return c, nil
}

// UploadResult is the subset of the upload response the service consumes.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Bytes     int64  `json:"bytes"`
}

// UploadImage sends the file content through a signed image upload and returns
// the hosted asset.
func (c *Client) UploadImage(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	params := map[string]string{"timestamp": timestamp}
	if c.folder != "" {
		params["folder"] = c.folder
	}
	signature := c.sign(params)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building upload form")
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "copying upload content")
	}
	fields := map[string]string{
		"api_key":   c.apiKey,
		"timestamp": timestamp,
		"signature": signature,
	}
	if c.folder != "" {
		fields["folder"] = c.folder
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing upload field")
		}
	}
	if err := writer.Close(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "closing upload form")
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "cloudinary upload", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cloudinary upload failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading upload response")
	}

	if resp.StatusCode >= 400 {
		message := uploadErrorMessage(payload)
		err := fmt.Errorf("cloudinary: %s (status %d)", message, resp.StatusCode)
		c.logger.Error(ctx, "cloudinary upload", err)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cloudinary rejected credentials")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cloudinary rejected upload")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cloudinary upload failed")
	}

	var result UploadResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding upload response")
	}

	ctx = c.logger.WithFields(ctx, map[string]any{"public_id": result.PublicID, "bytes": result.Bytes})
	c.logger.Info(ctx, "cloudinary upload complete")
	return &result, nil
}

/// sign produces the SHA-1 signature Cloudinary expects: sorted key=value
// pairs joined by & with the secret appended.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

func uploadErrorMessage(payload []byte) string {
	var decoded struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &decoded); err == nil && decoded.Error.Message != "" {
		return decoded.Error.Message
	}
	return strings.TrimSpace(string(payload))
}
