package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/raphaelgruber/matchlight-go/internal/client"
	"github.com/raphaelgruber/matchlight-go/internal/models"
)

// AlertService lists and updates alerts.
type AlertService struct {
	client *client.Client
}

// NewAlertService creates an alert service.
func NewAlertService(c *client.Client) *AlertService {
	return &AlertService{client: c}
}

// AlertFilter narrows an alert listing. Zero values are not sent.
type AlertFilter struct {
	Limit        int
	Seen         *bool
	Archived     *bool
	Project      models.ProjectRef
	Record       models.RecordRef
	LastModified time.Time
	Offset       int
}

func (f AlertFilter) query() url.Values {
	q := url.Values{}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Seen != nil {
		q.Set("seen", boolDigit(*f.Seen))
	}
	if f.Archived != nil {
		q.Set("archived", boolDigit(*f.Archived))
	}
	if token := projectToken(f.Project); token != "" {
		q.Set("upload_token_filter", token)
	}
	if id := recordIdent(f.Record); id != "" {
		q.Set("record_id_filter", id)
	}
	if !f.LastModified.IsZero() {
		q.Set("mtime", strconv.FormatInt(models.UnixSeconds(f.LastModified), 10))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Filter lists alerts matching f.
func (s *AlertService) Filter(ctx context.Context, f AlertFilter) ([]models.Alert, error) {
	resp, err := s.client.Request(ctx, "/alerts", nil, client.WithQuery(f.query()))
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	var body struct {
		Alerts []models.Alert `json:"alerts"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, err
	}
	return body.Alerts, nil
}

// Edit sets the seen and archived flags of an alert. Nil flags are left
// unchanged. The state reported back by the API is returned.
func (s *AlertService) Edit(ctx context.Context, alert models.AlertRef, seen, archived *bool) (models.AlertState, error) {
	id := alert.AlertIdent()
	req := map[string]bool{}
	if seen != nil {
		req["seen"] = *seen
	}
	if archived != nil {
		req["archived"] = *archived
	}

	resp, err := s.client.Request(ctx, "/alert/"+url.PathEscape(id)+"/edit", req)
	if err != nil {
		return models.AlertState{}, fmt.Errorf("edit alert %s: %w", id, err)
	}
	var body struct {
		Seen     models.Flag `json:"seen"`
		Archived models.Flag `json:"archived"`
	}
	if err := resp.JSON(&body); err != nil {
		return models.AlertState{}, err
	}
	return models.AlertState{Seen: bool(body.Seen), Archived: bool(body.Archived)}, nil
}

// Details returns the raw details document of an alert, or nil if the
// alert does not exist.
func (s *AlertService) Details(ctx context.Context, alert models.AlertRef) (map[string]any, error) {
	id := alert.AlertIdent()
	resp, found, err := s.client.Lookup(ctx, "/alert/"+url.PathEscape(id)+"/details")
	if err != nil {
		return nil, fmt.Errorf("alert %s details: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	var details map[string]any
	if err := resp.JSON(&details); err != nil {
		return nil, err
	}
	return details, nil
}
