package chatapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/rmaffei/cobranca-service/internal/config"
	"github.com/sirupsen/logrus"
)

// Client handles integration with the chat message provider. The provider
// exposes an XML-over-HTTP send endpoint; destination numbers must already be
// digit-only with a country-code prefix.
type Client struct {
	url    string
	token  string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new chat provider client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url:   cfg.ChatAPIURL,
		token: cfg.ChatAPIToken,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// buildRequest creates the XML payload for one message
func (c *Client) buildRequest(destination, text string) string {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	msg := doc.CreateElement("message")
	msg.CreateElement("to").SetText(destination)
	msg.CreateElement("body").SetText(text)
	out, _ := doc.WriteToString()
	return out
}

// sendRequest posts the payload to the provider
func (c *Client) sendRequest(ctx context.Context, payload string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("Chat provider XML response: %s", string(body))

	return body, nil
}

// parseResponse checks the provider's delivery status in the XML response
func (c *Client) parseResponse(rawBody []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return fmt.Errorf("failed to parse XML: %w", err)
	}

	status := doc.FindElement("//response/status")
	if status == nil {
		return fmt.Errorf("no status element in provider response")
	}
	if status.Text() != "sent" && status.Text() != "queued" {
		reason := "unknown"
		if el := doc.FindElement("//response/error"); el != nil {
			reason = el.Text()
		}
		return fmt.Errorf("provider rejected message: %s", reason)
	}
	return nil
}

// Send delivers one rendered message to a phone number over the chat channel
func (c *Client) Send(ctx context.Context, destination, text string) error {
	payload := c.buildRequest(destination, text)
	body, err := c.sendRequest(ctx, payload)
	if err != nil {
		c.log.Errorf("Chat send to %s failed: %v", destination, err)
		return err
	}
	if err := c.parseResponse(body); err != nil {
		c.log.Errorf("Chat send to %s rejected: %v", destination, err)
		return err
	}
	c.log.Infof("Chat message sent to %s", destination)
	return nil
}
