package forumclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"forum_backend/internal/services/dto"
	"forum_backend/pkg/apperrors"
)

// RESTClient calls the /api/v1 endpoints. Errors returned by the server are
// decoded into *apperrors.AppError so callers can match them with
// errors.Is against the predefined values.
type RESTClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewRESTClient(baseURL, token string, httpClient *http.Client) *RESTClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		token:   token,
		http:    httpClient,
	}
}

func (c *RESTClient) CreateComment(ctx context.Context, req dto.CreateCommentRequest) (*dto.CommentResponse, error) {
	var out dto.CommentResponse
	if err := c.do(ctx, http.MethodPost, "/comments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) EditComment(ctx context.Context, commentID uint, body string) (*dto.CommentResponse, error) {
	var out dto.CommentResponse
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/comments/%d", commentID), dto.EditCommentRequest{Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) DeleteComment(ctx context.Context, commentID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/comments/%d", commentID), nil, nil)
}

func (c *RESTClient) GetPostComments(ctx context.Context, postID uint) (*dto.PostCommentsResponse, error) {
	var out dto.PostCommentsResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/comments/%d", postID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) LikeComment(ctx context.Context, commentID uint) (*dto.CommentLikeResponse, error) {
	var out dto.CommentLikeResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/comments/%d/like", commentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) UnlikeComment(ctx context.Context, commentID uint) (*dto.CommentLikeResponse, error) {
	var out dto.CommentLikeResponse
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/comments/%d/like", commentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) ListNotifications(ctx context.Context, query dto.NotificationListQuery) ([]dto.NotificationResponse, error) {
	params := url.Values{}
	if query.Type != "" {
		params.Set("type", query.Type)
	}
	if query.Unread {
		params.Set("unread", "true")
	}
	path := "/notifications"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out []dto.NotificationResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) MarkNotificationsRead(ctx context.Context, ids []uint) (*dto.MarkNotificationsReadResponse, error) {
	var out dto.MarkNotificationsReadResponse
	if err := c.do(ctx, http.MethodPost, "/notifications/read", dto.MarkNotificationsReadRequest{IDs: ids}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) UnreadNotificationCount(ctx context.Context) (int64, error) {
	var out dto.UnreadCountResponse
	if err := c.do(ctx, http.MethodGet, "/notifications/unread_count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *RESTClient) MarkPostViewed(ctx context.Context, postID uint) (*dto.UnreadRepliesResponse, error) {
	var out dto.UnreadRepliesResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/view", postID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp apperrors.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == nil {
			return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
		}
		errResp.Error.HTTPCode = resp.StatusCode
		return errResp.Error
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Resync reloads the post comments, the notification list and the unread
// counter into store. It is the usual Session.OnReconnect.
func Resync(ctx context.Context, api *RESTClient, store *Store, postID uint) error {
	if postID != 0 {
		comments, err := api.GetPostComments(ctx, postID)
		if err != nil {
			return err
		}
		store.SetComments(comments.Comments)
	}

	notifications, err := api.ListNotifications(ctx, dto.NotificationListQuery{})
	if err != nil {
		return err
	}
	store.SetNotifications(notifications)

	count, err := api.UnreadNotificationCount(ctx)
	if err != nil {
		return err
	}
	store.SetUnreadNotificationCount(count)
	return nil
}
