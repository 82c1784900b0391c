package transport

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	portidem "github.com/alanyang/prompt-workshop/internal/port/idempotency"
)

// IdempotencyHeader names the client-chosen key that makes a POST replayable.
const IdempotencyHeader = "Idempotency-Key"

// noisyPaths are high-frequency read paths logged at Debug to keep Info clean.
var noisyPaths = map[string]bool{
	"/api/studio/cards": true,
	"/api/ws":           true,
	"/healthz":          true,
	"/metrics":          true,
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.Method == "OPTIONS" {
			return
		}

		level := slog.LevelInfo
		if c.Request.Method == "GET" && noisyPaths[c.Request.URL.Path] {
			level = slog.LevelDebug
		}
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}

		slog.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS, PUT")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// storedResponse is what IdempotencyMiddleware persists per key.
type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware replays the stored response for a POST whose
// Idempotency-Key was already processed successfully on the same route.
// Requests without the header, and failed responses, are never stored.
func IdempotencyMiddleware(repo portidem.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if repo == nil || key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		scoped := c.Request.URL.Path + "|" + key

		if data, found, err := repo.Check(c.Request.Context(), scoped); err != nil {
			slog.Warn("idempotency check failed, processing request", "key", key, "error", err)
		} else if found {
			var stored storedResponse
			if err := json.Unmarshal(data, &stored); err == nil {
				c.Header("Idempotent-Replayed", "true")
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
				c.Abort()
				return
			}
		}

		rec := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status < 200 || status >= 300 || !json.Valid(rec.body.Bytes()) {
			return
		}
		data, _ := json.Marshal(storedResponse{Status: status, Body: rec.body.Bytes()})
		if err := repo.Store(c.Request.Context(), scoped, c.FullPath(), data); err != nil {
			slog.Warn("failed to store idempotent response", "key", key, "error", err)
		}
	}
}
