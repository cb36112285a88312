package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultAvailabilityTimeout = 3 * time.Second

// CheckAvailability reports whether anything answers HTTP at rawURL. Any
// response status counts as available. WebSocket URLs are probed over the
// matching HTTP scheme.
func CheckAvailability(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		logrus.WithField("url", rawURL).WithError(err).Warn("Availability check failed")
		return err
	}
	resp.Body.Close()

	logrus.WithFields(logrus.Fields{
		"url":    rawURL,
		"status": resp.StatusCode,
	}).Info("Availability check passed")
	return nil
}
