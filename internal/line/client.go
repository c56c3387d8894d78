package line

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

var (
	errMissingChannelToken = errors.New("channel access token required")

	// ErrInvalidClientConfig reports unusable LINE client configuration.
	ErrInvalidClientConfig = errors.New("line: invalid client config")
)

// Client wraps the LINE Messaging API behind the two calls this service
// makes: replying to webhook events and resolving group display names.
type Client struct {
	api *messaging_api.MessagingApiAPI
}

// NewClient constructs a Client for the given channel access token.
func NewClient(channelToken string) (*Client, error) {
	if strings.TrimSpace(channelToken) == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClientConfig, errMissingChannelToken)
	}

	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("construct messaging api client: %w", err)
	}
	return &Client{api: api}, nil
}

// Reply sends an ordered sequence of messages in response to a webhook event.
// The SDK client manages its own transport, so the context is not threaded
// into the call.
func (c *Client) Reply(_ context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}

// GroupName returns the display name of a group chat.
func (c *Client) GroupName(_ context.Context, groupID string) (string, error) {
	summary, err := c.api.GetGroupSummary(groupID)
	if err != nil {
		return "", fmt.Errorf("fetch group summary: %w", err)
	}
	return summary.GroupName, nil
}
