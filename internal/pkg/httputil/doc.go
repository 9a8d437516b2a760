// Package httputil provides the JSON and text response helpers shared by
// the API handlers.
package httputil
