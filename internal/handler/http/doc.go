// Package http assembles the HTTP surface of the service: the route table
// with its per-route rate limit policies, access logging, panic recovery,
// request metrics and the health endpoints.
package http
