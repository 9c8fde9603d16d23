package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"portfolio_social_service/internal/notification/domain"
	"portfolio_social_service/pkg/config"
	errprocess "portfolio_social_service/pkg/err"
	"portfolio_social_service/pkg/logger"
)

// NotificationAPIRepository notification HTTP repository
type NotificationAPIRepository struct {
	base   string
	client *http.Client
}

// NewNotificationAPIRepository create notification api repository
func NewNotificationAPIRepository(cfg config.APIConfig, client *http.Client) *NotificationAPIRepository {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &NotificationAPIRepository{base: cfg.BaseURL, client: client}
}

// FetchUnreadCount GET /notifications/unread_count
func (r *NotificationAPIRepository) FetchUnreadCount(ctx context.Context) (int, error) {
	var res domain.UnreadCountResult
	if err := r.getJSON(ctx, r.base+"/notifications/unread_count", &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// ListByCategory GET /notifications?category=
func (r *NotificationAPIRepository) ListByCategory(ctx context.Context, category domain.Category) ([]domain.Notification, error) {
	var items []domain.Notification
	url := fmt.Sprintf("%s/notifications?category=%s", r.base, category)
	if err := r.getJSON(ctx, url, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkOneAsRead PATCH /notifications/{id}/read
func (r *NotificationAPIRepository) MarkOneAsRead(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodPatch, fmt.Sprintf("%s/notifications/%s/read", r.base, id), nil)
}

// MarkTabAsRead PATCH /notifications/read_all?category=
func (r *NotificationAPIRepository) MarkTabAsRead(ctx context.Context, category domain.Category) error {
	return r.do(ctx, http.MethodPatch, fmt.Sprintf("%s/notifications/read_all?category=%s", r.base, category), nil)
}

// DeleteOne DELETE /notifications/{id}
func (r *NotificationAPIRepository) DeleteOne(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, fmt.Sprintf("%s/notifications/%s", r.base, id), nil)
}

// FetchPreferences GET /notifications/preferences
func (r *NotificationAPIRepository) FetchPreferences(ctx context.Context) (domain.Preferences, error) {
	var prefs domain.Preferences
	if err := r.getJSON(ctx, r.base+"/notifications/preferences", &prefs); err != nil {
		return domain.Preferences{}, err
	}
	return prefs, nil
}

// UpdatePreferences PUT /notifications/preferences
func (r *NotificationAPIRepository) UpdatePreferences(ctx context.Context, prefs domain.Preferences) error {
	return r.do(ctx, http.MethodPut, r.base+"/notifications/preferences", prefs)
}

func (r *NotificationAPIRepository) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errprocess.Set(fmt.Sprintf("new request: %v", err))
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return errprocess.Set(fmt.Sprintf("request %s: %v", url, err))
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errprocess.Set(fmt.Sprintf("decode response %s: %v", url, err))
	}
	return nil
}

func (r *NotificationAPIRepository) do(ctx context.Context, method, url string, payload interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return errprocess.Set(fmt.Sprintf("marshal payload: %v", err))
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errprocess.Set(fmt.Sprintf("new request: %v", err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return errprocess.Set(fmt.Sprintf("request %s %s: %v", method, url, err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errprocess.ErrUnauthorized
	case resp.StatusCode >= 300:
		logger.Log.Warn(fmt.Sprintf("notification api %s status %d", resp.Request.URL.Path, resp.StatusCode))
		return errprocess.Set(fmt.Sprintf("notification api status %d", resp.StatusCode))
	}
	return nil
}
