package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// broker appends records to one stream.
type broker struct {
	def    domain.EntityDefinition
	cfg    *Config
	client *redis.Client

	closeOnce sync.Once
	closeErr  error
}

func newBroker(def domain.EntityDefinition, cfg *Config, client *redis.Client) *broker {
	return &broker{def: def, cfg: cfg, client: client}
}

func (b *broker) String() string {
	return fmt.Sprintf("%s[%s/%s]", Type, b.cfg.Addr, b.cfg.Stream)
}

func (b *broker) Definition() domain.EntityDefinition { return b.def }

// Publish appends ref as one stream entry.
func (b *broker) Publish(ctx context.Context, ref domain.DataReference) error {
	attrs, err := json.Marshal(ref.Attributes())
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	values := map[string]any{
		"id":           ref.ID(),
		"uri":          ref.SourceURI(),
		"broker":       ref.SourceBrokerID(),
		"content_type": ref.ContentType(),
		"content":      string(ref.Content()),
		"attributes":   string(attrs),
	}
	if !ref.LastModified().IsZero() {
		values["last_modified"] = ref.LastModified().UTC().Format(time.RFC3339)
	}

	args := &redis.XAddArgs{
		Stream: b.cfg.Stream,
		Values: values,
	}
	if b.cfg.MaxLen > 0 {
		args.MaxLen = b.cfg.MaxLen
		args.Approx = true
	}

	if _, err := b.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	return nil
}

func (b *broker) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.client.Close()
	})
	return b.closeErr
}
