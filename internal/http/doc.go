// Package http provides the HTTP client used to fetch coin assets.
//
// This package handles:
//   - A shared, pooled transport safe for concurrent icon downloads
//   - Full-body GET requests for config documents and icons
//   - Classification of non-success status codes into sentinel errors
//   - Debug logging of every outgoing request
//
// Requests are never retried. A failed request is terminal for the run.
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	body, err := client.Get(ctx, url)
//	if errors.Is(err, http.ErrNotFound) {
//	    // the revision does not carry this file
//	}
package http
