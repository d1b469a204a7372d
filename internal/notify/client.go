package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"homegrid-data/internal/apperrors"
)

// InvitationNotice is the payload sent to the notification service when a
// parent invites a user into a building. Delivery (and the user's
// accept/decline UI) is the notification service's job; this service only
// records the invitation and fires the notice.
type InvitationNotice struct {
	InvitationID string `json:"invitation_id"`
	BuildingID   string `json:"building_id"`
	BuildingName string `json:"building_name"`
	ToEmail      string `json:"to_email"`
	FromEmail    string `json:"from_email"`
}

// Notifier delivers notices to the external notification service.
type Notifier interface {
	SendInvitation(ctx context.Context, notice InvitationNotice) error
}

// Client is the HTTP notifier.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &Client{httpClient: client, logger: logger}
}

func (c *Client) SendInvitation(ctx context.Context, notice InvitationNotice) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(notice).
		Post("/api/v1/notifications/invitations")
	if err != nil {
		return apperrors.External("notification service unreachable", err)
	}
	if resp.IsError() {
		c.logger.Warn("notification service rejected invitation notice",
			zap.Int("status", resp.StatusCode()),
			zap.String("invitation_id", notice.InvitationID))
		return apperrors.External(
			fmt.Sprintf("notification service returned %d", resp.StatusCode()), nil)
	}
	return nil
}
