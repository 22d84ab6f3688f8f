package jdbc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/logger"
)

// broker streams the rows of one query.
type broker struct {
	def domain.EntityDefinition
	cfg *Config

	db      *sql.DB
	rows    *sql.Rows
	columns []string
	pending bool
	done    bool
}

func newBroker(def domain.EntityDefinition, cfg *Config) *broker {
	return &broker{def: def, cfg: cfg}
}

func (b *broker) String() string {
	label := b.def.Label
	if label == "" {
		label = b.cfg.Driver
	}
	return fmt.Sprintf("%s[%s]", Type, label)
}

func (b *broker) Definition() domain.EntityDefinition { return b.def }

func (b *broker) open(ctx context.Context) error {
	db, err := sql.Open(b.cfg.Driver, b.cfg.DataSource())
	if err != nil {
		return fmt.Errorf("open %s: %w", b.cfg.Driver, err)
	}
	rows, err := db.QueryContext(ctx, b.cfg.SQL)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("query: %w", err)
	}
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		_ = db.Close()
		return fmt.Errorf("columns: %w", err)
	}
	for _, want := range []string{b.cfg.FileIDColumn, b.cfg.TitleColumn, b.cfg.DescriptionColumn} {
		if want != "" && !slices.Contains(columns, want) {
			_ = rows.Close()
			_ = db.Close()
			return fmt.Errorf("query result has no column %q", want)
		}
	}
	b.db, b.rows, b.columns = db, rows, columns
	logger.Debug("JDBC %s: query returned columns %v", b, columns)
	return nil
}

func (b *broker) HasNext(ctx context.Context) (bool, error) {
	if b.done {
		return false, nil
	}
	if b.pending {
		return true, nil
	}
	if b.rows == nil {
		if err := b.open(ctx); err != nil {
			return false, err
		}
	}
	if b.rows.Next() {
		b.pending = true
		return true, nil
	}
	b.done = true
	if err := b.rows.Err(); err != nil {
		return false, fmt.Errorf("read rows: %w", err)
	}
	return false, nil
}

func (b *broker) Next(ctx context.Context) (domain.DataReference, error) {
	if !b.pending {
		more, err := b.HasNext(ctx)
		if err != nil {
			return domain.DataReference{}, err
		}
		if !more {
			return domain.DataReference{}, fmt.Errorf("%s: no more rows", b)
		}
	}
	b.pending = false

	values := make([]any, len(b.columns))
	ptrs := make([]any, len(b.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := b.rows.Scan(ptrs...); err != nil {
		return domain.DataReference{}, fmt.Errorf("scan row: %w", err)
	}

	row := make(map[string]string, len(b.columns))
	for i, col := range b.columns {
		row[col] = stringify(values[i])
	}
	id := row[b.cfg.FileIDColumn]
	if id == "" {
		return domain.DataReference{}, fmt.Errorf("row has empty %s column %q", PropFileID, b.cfg.FileIDColumn)
	}

	content, err := json.Marshal(row)
	if err != nil {
		return domain.DataReference{}, fmt.Errorf("encode row %s: %w", id, err)
	}

	attrs := make(map[string]string, len(row)+2)
	for k, v := range row {
		attrs["column."+k] = v
	}
	if b.cfg.TitleColumn != "" {
		attrs["title"] = row[b.cfg.TitleColumn]
	}
	if b.cfg.DescriptionColumn != "" {
		attrs["description"] = row[b.cfg.DescriptionColumn]
	}

	uri := fmt.Sprintf("jdbc:%s/%s", b.cfg.Driver, url.PathEscape(id))
	return domain.NewDataReference(id, uri, b.String(),
		domain.WithContent(content, "application/json"),
		domain.WithAttributes(attrs),
	), nil
}

func (b *broker) Close() error {
	var errs []error
	if b.rows != nil {
		errs = append(errs, b.rows.Close())
	}
	if b.db != nil {
		errs = append(errs, b.db.Close())
	}
	return errors.Join(errs...)
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
