package idempotency

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// HeaderKey is the request header that names a replayable operation.
const HeaderKey = "Idempotency-Key"

// HeaderReplayed marks responses served from the store.
const HeaderReplayed = "Idempotent-Replayed"

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// reservationTTL bounds how long a crashed request can hold its key.
const reservationTTL = 5 * time.Minute

// Middleware replays the stored response for a repeated POST with the same key,
// path and caller scope. A repeat that arrives while the first request is still
// running gets 409. Only responses below 500 are stored so transient failures
// can be retried. scope may be nil when callers share one key space.
func Middleware(store Store, ttl func() time.Duration, scope func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.GetHeader(HeaderKey))
		if key == "" {
			c.Next()
			return
		}
		owner := ""
		if scope != nil {
			owner = scope(c)
		}
		scoped := c.Request.Method + " " + c.Request.URL.Path + " " + owner + " " + key
		ctx := c.Request.Context()

		if replay(c, store, scoped) {
			return
		}
		reserved, errReserve := store.Reserve(ctx, scoped, reservationTTL)
		if errReserve != nil {
			log.WithError(errReserve).Warn("idempotency: reserve failed")
			c.Next()
			return
		}
		if !reserved {
			if !replay(c, store, scoped) {
				inFlight(c)
			}
			return
		}

		stored := false
		defer func() {
			if stored {
				return
			}
			if errRelease := store.Release(context.WithoutCancel(ctx), scoped); errRelease != nil {
				log.WithError(errRelease).Warn("idempotency: release failed")
			}
		}()

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		var window time.Duration
		if ttl != nil {
			window = ttl()
		}
		resp := Response{
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}
		if errPut := store.Put(context.WithoutCancel(ctx), scoped, resp, window); errPut != nil {
			log.WithError(errPut).Warn("idempotency: store failed")
			return
		}
		stored = true
	}
}

// replay writes a captured response for key. A pending entry answers 409.
func replay(c *gin.Context, store Store, key string) bool {
	cached, ok, errGet := store.Get(c.Request.Context(), key)
	if errGet != nil {
		log.WithError(errGet).Warn("idempotency: lookup failed")
		return false
	}
	if !ok || cached == nil {
		return false
	}
	if cached.Pending {
		inFlight(c)
		return true
	}
	c.Header(HeaderReplayed, "true")
	contentType := cached.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(cached.Status, contentType, cached.Body)
	c.Abort()
	return true
}

func inFlight(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is in progress", "code": "idempotency_in_flight"})
}
