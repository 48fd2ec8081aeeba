package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/couchcryptid/event-points-etl/internal/config"
	"github.com/couchcryptid/event-points-etl/internal/feature"
)

type credentials struct {
	username     string
	password     string
	clientID     string
	clientSecret string
}

// Client talks to an ArcGIS Online or Enterprise portal and the feature
// service behind a layer item.
type Client struct {
	portalURL  string
	itemID     string
	layerIndex int
	rollback   bool
	fields     feature.FieldMap
	creds      credentials
	httpClient *http.Client
	logger     *slog.Logger

	tsMu sync.Mutex
	ts   oauth2.TokenSource // built on first use, reused across publishes
}

// NewClient creates an ArcGIS client from the ARCGIS_* settings.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		portalURL:  cfg.ArcGISPortalURL,
		itemID:     cfg.ArcGISItemID,
		layerIndex: cfg.ArcGISLayerIndex,
		rollback:   cfg.ArcGISRollbackOnFailure,
		fields:     feature.DefaultFieldMap(),
		creds: credentials{
			username:     cfg.ArcGISUsername,
			password:     cfg.ArcGISPassword,
			clientID:     cfg.ArcGISClientID,
			clientSecret: cfg.ArcGISClientSecret,
		},
		httpClient: &http.Client{Timeout: cfg.ArcGISTimeout},
		logger:     logger,
	}
}

// itemResponse is the subset of a portal item we use.
type itemResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}

// layerResponse is the subset of feature layer metadata we use.
type layerResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// layer resolves the configured item to the URL of its feature layer.
func (c *Client) layer(ctx context.Context, token string) (string, error) {
	itemURL := fmt.Sprintf("%s/sharing/rest/content/items/%s", c.portalURL, url.PathEscape(c.itemID))

	var item itemResponse
	if err := c.call(ctx, http.MethodGet, itemURL, url.Values{"f": {"json"}, "token": {token}}, &item); err != nil {
		return "", classifyLookup(fmt.Errorf("item %s: %w", c.itemID, err))
	}
	if item.URL == "" {
		return "", fmt.Errorf("%w: item %s (%s) has no service url", ErrLayerNotFound, c.itemID, item.Type)
	}

	layerURL := strings.TrimRight(item.URL, "/") + "/" + strconv.Itoa(c.layerIndex)

	var meta layerResponse
	if err := c.call(ctx, http.MethodGet, layerURL, url.Values{"f": {"json"}, "token": {token}}, &meta); err != nil {
		return "", classifyLookup(fmt.Errorf("layer %d of %q: %w", c.layerIndex, item.Title, err))
	}
	if meta.Name == "" && meta.Type == "" {
		return "", fmt.Errorf("%w: layer %d of %q", ErrLayerNotFound, c.layerIndex, item.Title)
	}

	c.logger.Info("found layer", "item", item.Title, "layer", meta.Name, "layer_index", c.layerIndex)
	return layerURL, nil
}

// classifyLookup maps item and layer lookup failures: token problems are
// auth errors, every other store error means the layer is not reachable.
func classifyLookup(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.isTokenError() {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}
	return fmt.Errorf("%w: %w", ErrLayerNotFound, err)
}

// envelope catches the error object ArcGIS returns in place of a result.
type envelope struct {
	Error *APIError `json:"error"`
}

// call sends a GET (params in the query) or POST (params form-encoded)
// request and decodes the JSON response into out. Store errors come back
// as *APIError whether they were sent with an HTTP error status or not.
func (c *Client) call(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	var body io.Reader
	if method == http.MethodGet {
		endpoint += "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("arcgis request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if jsonErr := json.Unmarshal(data, &env); jsonErr == nil && env.Error != nil {
		return env.Error
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Code: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
