package sms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Sender delivers one message to one recipient. Fire-and-forget with a
// success/failure result; delivery receipts are out of scope.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Gateway sends SMS through the SENS message API. Each call is a single
// signed REST request; the signature is an HMAC-SHA256 over method, path,
// timestamp and access key as the gateway requires.
type Gateway struct {
	log        *zap.Logger
	httpClient *http.Client
	baseURL    string
	serviceID  string
	accessKey  string
	secretKey  string
	sender     string
}

// NewGateway creates a SENS gateway client.
func NewGateway(log *zap.Logger, serviceID, accessKey, secretKey, sender string) *Gateway {
	return &Gateway{
		log:        log,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://sens.apigw.ntruss.com",
		serviceID:  serviceID,
		accessKey:  accessKey,
		secretKey:  secretKey,
		sender:     sender,
	}
}

type sendRequest struct {
	Type     string        `json:"type"`
	From     string        `json:"from"`
	Content  string        `json:"content"`
	Messages []sendMessage `json:"messages"`
}

type sendMessage struct {
	To string `json:"to"`
}

// Send delivers one SMS.
func (g *Gateway) Send(ctx context.Context, to, body string) error {
	path := fmt.Sprintf("/sms/v2/services/%s/messages", g.serviceID)
	payload, err := json.Marshal(sendRequest{
		Type:     "SMS",
		From:     g.sender,
		Content:  body,
		Messages: []sendMessage{{To: to}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode SMS request: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("x-ncp-apigw-timestamp", timestamp)
	req.Header.Set("x-ncp-iam-access-key", g.accessKey)
	req.Header.Set("x-ncp-apigw-signature-v2", g.sign(http.MethodPost, path, timestamp))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("SMS gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		g.log.Warn("SMS gateway rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("to", to),
		)
		return fmt.Errorf("SMS gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// sign builds the gateway's v2 request signature.
func (g *Gateway) sign(method, path, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(g.secretKey))
	fmt.Fprintf(mac, "%s %s\n%s\n%s", method, path, timestamp, g.accessKey)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
