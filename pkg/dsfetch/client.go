// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package dsfetch

import (
	"net/http"
	"time"
)

// buildHTTPClient creates an HTTP client tuned for a handful of sequential
// downloads from one host.
func buildHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr}
}

// addHeaders sets the user agent and asks for the payload as stored.
// Transparent gzip would drop Content-Length and change what gets hashed.
func addHeaders(req *http.Request, userAgent string) {
	if userAgent == "" {
		userAgent = "dsfetch/1"
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "identity")
}
