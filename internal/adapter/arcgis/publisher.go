package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/couchcryptid/event-points-etl/internal/domain"
	"github.com/couchcryptid/event-points-etl/internal/feature"
)

type editResult struct {
	ObjectID int64     `json:"objectId"`
	Success  bool      `json:"success"`
	Error    *editFail `json:"error,omitempty"`
}

type editFail struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

type applyEditsResponse struct {
	AddResults []editResult `json:"addResults"`
}

// Publish adds every row to the configured layer in one applyEdits request,
// asking the store to roll back the whole batch if any add fails. It
// implements pipeline.Publisher.
//
// Authentication and layer lookup failures wrap ErrAuth and ErrLayerNotFound.
// Nothing is retried. An empty batch makes no request.
func (c *Client) Publish(ctx context.Context, rows []domain.ExpandedRow) (domain.PublishReport, error) {
	if len(rows) == 0 {
		return domain.PublishReport{}, nil
	}

	token, err := c.token(ctx)
	if err != nil {
		return domain.PublishReport{}, err
	}

	layerURL, err := c.layer(ctx, token)
	if err != nil {
		return domain.PublishReport{}, err
	}

	features := make([]feature.Feature, len(rows))
	for i, row := range rows {
		features[i] = feature.New(row, c.fields)
	}
	adds, err := json.Marshal(features)
	if err != nil {
		return domain.PublishReport{}, fmt.Errorf("encode features: %w", err)
	}

	c.logger.Info("pushing features", "count", len(features), "rollback_on_failure", c.rollback)

	form := url.Values{
		"adds":              {string(adds)},
		"rollbackOnFailure": {strconv.FormatBool(c.rollback)},
		"f":                 {"json"},
		"token":             {token},
	}
	var resp applyEditsResponse
	if err := c.call(ctx, http.MethodPost, layerURL+"/applyEdits", form, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.isTokenError() {
			return domain.PublishReport{}, fmt.Errorf("apply edits: %w: %w", ErrAuth, err)
		}
		return domain.PublishReport{}, fmt.Errorf("apply edits: %w", err)
	}

	return buildReport(rows, resp.AddResults), nil
}

// buildReport counts exactly what the store reported per feature.
func buildReport(rows []domain.ExpandedRow, results []editResult) domain.PublishReport {
	report := domain.PublishReport{Queued: len(rows)}
	for i, r := range results {
		if r.Success {
			report.Succeeded++
			continue
		}
		report.Failed++
		f := domain.FeatureFailure{Index: i}
		if i < len(rows) {
			f.SourceLine = rows[i].SourceLine
			f.Unit = rows[i].Unit
		}
		if r.Error != nil {
			f.Code = r.Error.Code
			f.Message = r.Error.Description
		}
		report.Failures = append(report.Failures, f)
	}
	return report
}
