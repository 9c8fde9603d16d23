package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"portfolio_social_service/internal/message/domain"
	"portfolio_social_service/pkg/config"
	errprocess "portfolio_social_service/pkg/err"
	"portfolio_social_service/pkg/logger"
)

// ChatAPIRepository chat HTTP repository
type ChatAPIRepository struct {
	base   string
	client *http.Client
}

// NewChatAPIRepository create chat api repository
// client 需帶 cookie jar 才能附上 auth cookie
func NewChatAPIRepository(cfg config.APIConfig, client *http.Client) *ChatAPIRepository {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &ChatAPIRepository{base: cfg.BaseURL, client: client}
}

// SendMessage POST /chats/{id}/messages multipart 上傳文字與圖片
func (r *ChatAPIRepository) SendMessage(ctx context.Context, chatID, text string, images []domain.Attachment) (domain.SendMessageResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", chatID); err != nil {
		return domain.SendMessageResult{}, errprocess.Set(fmt.Sprintf("write chat_id field: %v", err))
	}
	if err := w.WriteField("text", text); err != nil {
		return domain.SendMessageResult{}, errprocess.Set(fmt.Sprintf("write text field: %v", err))
	}
	for _, img := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, img.Name))
		h.Set("Content-Type", img.MIME)
		part, err := w.CreatePart(h)
		if err != nil {
			return domain.SendMessageResult{}, errprocess.Set(fmt.Sprintf("create image part: %v", err))
		}
		if _, err := part.Write(img.Data); err != nil {
			return domain.SendMessageResult{}, errprocess.Set(fmt.Sprintf("write image part: %v", err))
		}
	}
	if err := w.Close(); err != nil {
		return domain.SendMessageResult{}, errprocess.Set(fmt.Sprintf("close multipart writer: %v", err))
	}

	url := fmt.Sprintf("%s/chats/%s/messages", r.base, chatID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return domain.SendMessageResult{}, errprocess.Set(fmt.Sprintf("new request: %v", err))
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.SendMessageResult{}, errprocess.Set(fmt.Sprintf("send message request: %v", err))
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return domain.SendMessageResult{}, err
	}

	var res domain.SendMessageResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return domain.SendMessageResult{}, errprocess.Set(fmt.Sprintf("decode send message response: %v", err))
	}
	return res, nil
}

// FetchChat GET /chats/{id}
func (r *ChatAPIRepository) FetchChat(ctx context.Context, chatID string) (domain.Chat, error) {
	var chat domain.Chat
	if err := r.getJSON(ctx, fmt.Sprintf("%s/chats/%s", r.base, chatID), &chat); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// DeleteChat DELETE /chats/{id}
func (r *ChatAPIRepository) DeleteChat(ctx context.Context, chatID string) error {
	return r.do(ctx, http.MethodDelete, fmt.Sprintf("%s/chats/%s", r.base, chatID), nil)
}

// ArchiveChat PATCH /chats/{id}/archive
func (r *ChatAPIRepository) ArchiveChat(ctx context.Context, chatID string, archived bool) error {
	return r.do(ctx, http.MethodPatch, fmt.Sprintf("%s/chats/%s/archive", r.base, chatID), map[string]bool{"archived": archived})
}

// BlockChat PATCH /chats/{id}/block
func (r *ChatAPIRepository) BlockChat(ctx context.Context, chatID string, blocked bool) error {
	return r.do(ctx, http.MethodPatch, fmt.Sprintf("%s/chats/%s/block", r.base, chatID), map[string]bool{"blocked": blocked})
}

func (r *ChatAPIRepository) getJSON(ctx context.Context, url string, out interface{}) error {
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

func (r *ChatAPIRepository) do(ctx context.Context, method, url string, payload interface{}) error {
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

// checkStatus 401 回傳 sentinel，呼叫端視為未登入
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errprocess.ErrUnauthorized
	case resp.StatusCode >= 300:
		logger.Log.Warn(fmt.Sprintf("chat api %s status %d", resp.Request.URL.Path, resp.StatusCode))
		return errprocess.Set(fmt.Sprintf("chat api status %d", resp.StatusCode))
	}
	return nil
}
