package csw

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/logger"
)

// broker pages through GetRecords results, one request per page.
type broker struct {
	def    domain.EntityDefinition
	cfg    *Config
	client *client

	start int
	done  bool
	queue []record
}

func newBroker(def domain.EntityDefinition, cfg *Config, c *client) *broker {
	return &broker{def: def, cfg: cfg, client: c, start: 1}
}

func (b *broker) String() string {
	return fmt.Sprintf("%s[%s]", Type, b.cfg.Endpoint)
}

func (b *broker) Definition() domain.EntityDefinition { return b.def }

// HasNext fetches pages until a record is queued or the results run out.
func (b *broker) HasNext(ctx context.Context) (bool, error) {
	for len(b.queue) == 0 && !b.done {
		if err := b.fetch(ctx); err != nil {
			return false, err
		}
	}
	return len(b.queue) > 0, nil
}

func (b *broker) fetch(ctx context.Context) error {
	body, err := b.client.post(ctx, b.cfg.Endpoint.String(),
		getRecordsRequest(b.cfg.Profile, b.start, b.cfg.PageSize))
	if err != nil {
		return fmt.Errorf("get records from %d: %w", b.start, err)
	}
	pg, err := parsePage(body, b.cfg.Profile)
	if err != nil {
		return err
	}

	for _, r := range pg.records {
		if r.id == "" {
			logger.Warn("CSW %s: skipping record without identifier", b.cfg.Endpoint)
			continue
		}
		b.queue = append(b.queue, r)
	}
	logger.Debug("CSW %s: page at %d returned %d of %d records", b.cfg.Endpoint, b.start, pg.returned, pg.matched)

	// nextRecord is 0 after the last page; a server that does not advance
	// would otherwise loop forever.
	if pg.returned == 0 || pg.next <= b.start || (pg.matched > 0 && pg.next > pg.matched) {
		b.done = true
		return nil
	}
	b.start = pg.next
	return nil
}

func (b *broker) Next(_ context.Context) (domain.DataReference, error) {
	if len(b.queue) == 0 {
		return domain.DataReference{}, fmt.Errorf("%s: no more records", b)
	}
	r := b.queue[0]
	b.queue = b.queue[1:]

	opts := []domain.DataReferenceOption{
		domain.WithContent(r.content, "application/xml"),
		domain.WithAttributes(map[string]string{
			"path":    fileName(r.id),
			"title":   r.title,
			"profile": b.cfg.Profile.ID,
		}),
	}
	if !r.modified.IsZero() {
		opts = append(opts, domain.WithLastModified(r.modified))
	}
	return domain.NewDataReference(r.id, b.recordURL(r.id), b.String(), opts...), nil
}

// recordURL is the GetRecordById request for id.
func (b *broker) recordURL(id string) string {
	u := *b.cfg.Endpoint
	q := url.Values{}
	for k, v := range u.Query() {
		q[k] = v
	}
	q.Set("service", "CSW")
	q.Set("version", "2.0.2")
	q.Set("request", "GetRecordById")
	q.Set("id", id)
	q.Set("outputSchema", b.cfg.Profile.OutputSchema)
	q.Set("elementSetName", "full")
	u.RawQuery = q.Encode()
	return u.String()
}

func (b *broker) Close() error { return nil }

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// fileName turns a record identifier into a file name.
func fileName(id string) string {
	return unsafeName.ReplaceAllString(id, "_") + ".xml"
}
