package app

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
)

const (
	defaultStartupRetries = 5
	placeholderArtifact   = "otpgate placeholder artifact\n"
)

var readyBackoffBase = 200 * time.Millisecond

func (a *App) startupRetries() uint64 {
	if n := a.config.GetUint("app.startup.max_retries"); n > 0 {
		return uint64(n)
	}
	return defaultStartupRetries
}

// waitReady calls ping until it succeeds, retrying with a capped fibonacci
// backoff. Each attempt gets its own 5 second deadline.
func waitReady(ctx context.Context, name string, maxRetries uint64, ping func(context.Context) error) error {
	b := retry.NewFibonacci(readyBackoffBase)
	b = retry.WithCappedDuration(5*time.Second, b)
	b = retry.WithMaxRetries(maxRetries, b)

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := ping(pingCtx); err != nil {
			slog.WarnContext(ctx, "dependency not ready", "name", name, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}

		return nil
	})
}

func seedArtifact(ctx context.Context, stg storage.Storage, bucket, key string) error {
	if _, err := stg.StatObject(ctx, bucket, key); err == nil {
		return nil
	}

	body := []byte(placeholderArtifact)
	if _, err := stg.PutObject(ctx, bucket, key, bytes.NewReader(body), storage.PutOptions{
		Size:        int64(len(body)),
		ContentType: "text/plain",
	}); err != nil {
		return err
	}

	slog.InfoContext(ctx, "artifact placeholder uploaded", "bucket", bucket, "key", key)
	return nil
}
