package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/uc-cdis/nf-rangeland/runerr"
)

const (
	authHeader   = "Authorization"
	authScheme   = "Latch-Execution-Token"
	maxErrorBody = 4096
)

// Provisioner hands out shared storage volumes for a run
type Provisioner interface {
	RequestVolume(ctx context.Context, sizeGiB int) (string, error)
}

// Client talks to the cluster-local storage provisioning service.
// It makes exactly one request per call; retries are the scheduler's business.
type Client struct {
	Endpoint   string
	Token      string
	HTTPClient *http.Client
}

type volumeRequest struct {
	StorageGiB int `json:"storage_gib"`
}

type volumeResponse struct {
	Name string `json:"name"`
}

// NewClient returns a client for endpoint authenticated with the execution token
func NewClient(endpoint, token string) *Client {
	return &Client{
		Endpoint:   endpoint,
		Token:      token,
		HTTPClient: http.DefaultClient,
	}
}

// RequestVolume provisions a volume of sizeGiB and returns its name
func (c *Client) RequestVolume(ctx context.Context, sizeGiB int) (string, error) {
	if c.Token == "" {
		return "", runerr.Config(nil, "failed to get execution token")
	}
	if sizeGiB <= 0 {
		return "", runerr.Config(nil, "volume size must be positive, got %d", sizeGiB)
	}
	body, err := json.Marshal(volumeRequest{StorageGiB: sizeGiB})
	if err != nil {
		return "", runerr.Provisioning(err, "failed to marshal volume request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", runerr.Provisioning(err, "failed to build request for %v", c.Endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(authHeader, fmt.Sprintf("%v %v", authScheme, c.Token))

	log.WithFields(log.Fields{
		"endpoint":    c.Endpoint,
		"storage_gib": sizeGiB,
	}).Info("provisioning shared storage volume")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", runerr.Provisioning(err, "request to %v failed", c.Endpoint)
	}
	defer resp.Body.Close()

	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", runerr.Provisioning(err, "failed to read response from %v", c.Endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", runerr.Provisioning(nil, "%v returned %v: %v", c.Endpoint, resp.Status, truncate(b))
	}

	out := &volumeResponse{}
	if err = json.Unmarshal(b, out); err != nil {
		return "", runerr.Provisioning(err, "failed to parse response: %v", truncate(b))
	}
	if strings.TrimSpace(out.Name) == "" {
		return "", runerr.Provisioning(nil, "response has no volume name: %v", truncate(b))
	}
	log.WithField("volume", out.Name).Info("provisioned shared storage volume")
	return out.Name, nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
