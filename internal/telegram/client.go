/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	gologme "github.com/gologme/log"
)

const defaultBaseURL = "https://api.telegram.org"

// Config holds the bot credentials and the target chat.
type Config struct {
	Token  string
	ChatID string
	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string
}

// Client delivers messages through the Telegram Bot API.
type Client struct {
	http *resty.Client
	cfg  Config
	log  *gologme.Logger
}

type responseParameters struct {
	RetryAfter int `json:"retry_after"`
}

type apiResponse struct {
	OK          bool                `json:"ok"`
	Description string              `json:"description"`
	ErrorCode   int                 `json:"error_code"`
	Parameters  *responseParameters `json:"parameters,omitempty"`
	Result      struct {
		Username string `json:"username"`
	} `json:"result"`
}

func NewClient(cfg Config, log *gologme.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(30 * time.Second),
		cfg: cfg,
		log: log,
	}
}

// SendMessage posts one message to the configured chat. A rate limit
// response is honoured by waiting the server-given interval and retrying
// once.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	for attempt := 0; ; attempt++ {
		result := &apiResponse{}
		resp, err := c.http.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"chat_id":                  c.cfg.ChatID,
				"text":                     text,
				"parse_mode":               "Markdown",
				"disable_web_page_preview": "false",
			}).
			SetResult(result).
			SetError(result).
			Post(fmt.Sprintf("/bot%s/sendMessage", c.cfg.Token))
		if err != nil {
			return fmt.Errorf("telegram.SendMessage: %w", sanitizeError(err, c.cfg.Token))
		}

		if result.OK {
			return nil
		}

		if resp.StatusCode() == 429 && attempt == 0 && result.Parameters != nil {
			wait := time.Duration(result.Parameters.RetryAfter) * time.Second
			c.log.Warnf("Rate limited by Telegram, retrying in %v", wait)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return fmt.Errorf("telegram.SendMessage: %d %s", result.ErrorCode, result.Description)
	}
}

// Me returns the bot's username, used to verify the token is valid.
func (c *Client) Me(ctx context.Context) (string, error) {
	result := &apiResponse{}
	_, err := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(result).
		Get(fmt.Sprintf("/bot%s/getMe", c.cfg.Token))
	if err != nil {
		return "", fmt.Errorf("telegram.Me: %w", sanitizeError(err, c.cfg.Token))
	}
	if !result.OK {
		return "", fmt.Errorf("telegram.Me: %d %s", result.ErrorCode, result.Description)
	}
	return result.Result.Username, nil
}

// sanitizeError scrubs the bot token out of transport errors, which embed
// the full request URL.
func sanitizeError(err error, token string) error {
	if token == "" {
		return err
	}
	cleaned := strings.ReplaceAll(err.Error(), token, "***")
	if cleaned == err.Error() {
		return err
	}
	return fmt.Errorf("%s", cleaned)
}
