package rest

import "net/http"

// HTTPClient exposes the client's HTTP client for testing.
func HTTPClient(c *Client) *http.Client { return c.httpClient }
