package webcache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/mlodari/camposanto/internal/models"
)

// MessageKind identifies a control message sent into the interceptor.
type MessageKind string

const (
	MessageSeedDataCache MessageKind = "seed-data-cache"
	MessageClearCache    MessageKind = "clear-cache"
	MessageTriggerSync   MessageKind = "trigger-sync"
)

// Message is a control message from the application process.
type Message struct {
	Kind    MessageKind
	Records []models.Record
}

// snapshotKey is where the seeded data snapshot lives in the dynamic store.
const snapshotKey = "offline-snapshot"

// HandleMessage processes one control message.
//
// seed-data-cache stores the supplied records as a JSON snapshot and eagerly
// warms the image URLs they reference. clear-cache drops the dynamic store.
// trigger-sync only relays to the configured sync hook; the interceptor has
// no sync logic of its own.
func (i *Interceptor) HandleMessage(ctx context.Context, msg Message) error {
	switch msg.Kind {
	case MessageSeedDataCache:
		return i.seedDataCache(ctx, msg.Records)
	case MessageClearCache:
		i.caches.Drop(i.dynamic)
		i.logger.Info(ctx, "dynamic cache cleared")
		return nil
	case MessageTriggerSync:
		if i.syncHook == nil {
			return nil
		}
		return i.syncHook(ctx)
	default:
		return fmt.Errorf("unknown control message %q", msg.Kind)
	}
}

func (i *Interceptor) seedDataCache(ctx context.Context, recs []models.Record) error {
	store := i.caches.Open(i.dynamic)

	snapshot, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	store.Set(snapshotKey, &CachedResponse{
		Status:     http.StatusOK,
		Header:     header,
		Body:       snapshot,
		CapturedAt: i.now(),
	}, cache.NoExpiration)

	warmed := 0
	for _, url := range collectImageURLs(recs) {
		if err := i.warm(ctx, store, url); err != nil {
			i.logger.Warn(ctx, "failed to prefetch image", "url", url, "error", err)
			continue
		}
		warmed++
	}

	i.logger.Info(ctx, "data cache seeded", "records", len(recs), "images", warmed)
	return nil
}

func (i *Interceptor) warm(ctx context.Context, store *cache.Cache, url string) error {
	if _, ok := store.Get(url); ok {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := i.base.RoundTrip(req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	entry, err := capture(resp, i.now())
	if err != nil {
		return err
	}
	store.Set(url, entry, cache.NoExpiration)
	return nil
}

// collectImageURLs walks the records (and their nested collections) for
// string values that look like image URLs.
func collectImageURLs(recs []models.Record) []string {
	seen := make(map[string]struct{})
	var out []string

	var walk func(v any)
	walk = func(v any) {
		switch value := v.(type) {
		case string:
			if isImageURL(value) {
				if _, dup := seen[value]; !dup {
					seen[value] = struct{}{}
					out = append(out, value)
				}
			}
		case map[string]any:
			for _, nested := range value {
				walk(nested)
			}
		case models.Record:
			for _, nested := range value {
				walk(nested)
			}
		case []any:
			for _, nested := range value {
				walk(nested)
			}
		}
	}
	for _, rec := range recs {
		walk(rec)
	}
	return out
}

func isImageURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	lower := strings.ToLower(s)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
