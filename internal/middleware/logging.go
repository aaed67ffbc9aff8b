// Package middleware holds the Fiber middleware shared by the HTTP transport.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"time"

	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v2"
)

// RequestIDHeader carries the request ID in and out.
const RequestIDHeader = "X-Request-ID"

// Logging logs one line per request with status and latency. An incoming
// X-Request-ID is propagated, otherwise one is generated.
func Logging() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		c.Set(RequestIDHeader, id)
		c.Locals("requestID", id)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		log.Printf("[HTTP] %s %s %s -> %d (%s)", id, c.Method(), c.Path(), status, time.Since(start).Round(time.Millisecond))
		return err
	}
}

func newRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}
