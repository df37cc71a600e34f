// Package sms provides a client for sending SMS notifications through an
// HTTP SMS gateway.
//
// The gateway accepts a JSON payload with the sender, the E.164 recipient
// number and the message body, authenticated by an API key.
package sms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client represents an SMS gateway client used to send notifications.
type Client struct {
	apiURL string       // gateway endpoint for message submission
	apiKey string       // API key for authentication
	from   string       // sender name or number
	client *http.Client // HTTP client used to make requests
}

// NewClient creates a new SMS gateway Client instance.
func NewClient(apiURL, apiKey, from string) *Client {
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{},
	}
}

// sendMessageRequest represents the payload for the gateway message API.
type sendMessageRequest struct {
	From string `json:"from"` // sender name or number
	To   string `json:"to"`   // recipient phone number in E.164 format
	Body string `json:"body"` // message text
}

// Send submits a message to the gateway for the given phone number.
// The subject argument exists to satisfy the transport interface and is
// ignored: SMS messages have no subject.
func (c *Client) Send(to, _, msg string) error {
	reqBody := sendMessageRequest{
		From: c.from,
		To:   to,
		Body: msg,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway error: %s: %s", resp.Status, detail)
	}

	return nil
}
