// Package collect gathers every sourced value recorded for a loan
// application from the stores that hold them.
package collect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/internal/resilience"
)

// ApplicationChecker reports whether an application exists.
type ApplicationChecker interface {
	ApplicationExists(ctx context.Context, applicationID string) (bool, error)
}

// BankingFieldSource returns fields parsed from bank statements.
type BankingFieldSource interface {
	BankingFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error)
}

// ClientFormSource returns fields from the client's submitted application form.
type ClientFormSource interface {
	ClientFormFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error)
}

// OcrFieldSource returns fields extracted from uploaded documents.
type OcrFieldSource interface {
	OcrFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error)
}

// Sources are the stores a Collector reads from. Nil sources are skipped;
// a nil Applications checker treats every application as existing.
type Sources struct {
	Applications ApplicationChecker
	Banking      BankingFieldSource
	Client       ClientFormSource
	OCR          OcrFieldSource
}

// Config tunes a Collector.
type Config struct {
	// SourceTimeout bounds each source fetch independently. Default: 5s.
	SourceTimeout time.Duration
	Retry         resilience.RetryConfig
}

type fetchFunc func(ctx context.Context, applicationID string) ([]model.SourcedValue, error)

type source struct {
	typ   model.SourceType
	fetch fetchFunc
}

// Collector fans out to every configured source for one application.
// It holds no per-request state and is safe for concurrent use.
type Collector struct {
	apps    ApplicationChecker
	sources []source
	cfg     Config
}

// New creates a Collector. Sources are queried concurrently but their
// results are concatenated in banking, client, ocr order.
func New(src Sources, cfg Config) *Collector {
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 5 * time.Second
	}
	c := &Collector{apps: src.Applications, cfg: cfg}
	if src.Banking != nil {
		c.sources = append(c.sources, source{typ: model.SourceBanking, fetch: src.Banking.BankingFields})
	}
	if src.Client != nil {
		c.sources = append(c.sources, source{typ: model.SourceClient, fetch: src.Client.ClientFormFields})
	}
	if src.OCR != nil {
		c.sources = append(c.sources, source{typ: model.SourceOCR, fetch: src.OCR.OcrFields})
	}
	return c
}

// Collect returns a snapshot of every sourced value for the application.
//
// An unknown application yields Found=false and no values. A source that
// errors, panics, or times out contributes nothing and is listed in
// FailedSources. Only a failing existence check returns an error.
func (c *Collector) Collect(ctx context.Context, applicationID string) (*model.CollectionResult, error) {
	applicationID = strings.TrimSpace(applicationID)
	result := &model.CollectionResult{
		ApplicationID: applicationID,
		Values:        []model.SourcedValue{},
		FailedSources: []model.SourceType{},
	}
	if applicationID == "" {
		return result, nil
	}

	if c.apps != nil {
		exists, err := c.apps.ApplicationExists(ctx, applicationID)
		if err != nil {
			return nil, eris.Wrapf(err, "collect: check application %s", applicationID)
		}
		if !exists {
			return result, nil
		}
	}
	result.Found = true

	log := zap.L().With(zap.String("component", "collector"), zap.String("application_id", applicationID))

	values := make([][]model.SourcedValue, len(c.sources))
	failed := make([]bool, len(c.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range c.sources {
		g.Go(func() error {
			start := time.Now()
			vals, err := c.fetchOne(gctx, s, applicationID)
			if err != nil {
				failed[i] = true
				log.Warn("source fetch failed",
					zap.String("source", string(s.typ)),
					zap.Duration("elapsed", time.Since(start)),
					zap.Error(err),
				)
				return nil // a failed source contributes nothing
			}
			values[i] = vals
			log.Debug("source fetched",
				zap.String("source", string(s.typ)),
				zap.Int("values", len(vals)),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	for i, s := range c.sources {
		if failed[i] {
			result.FailedSources = append(result.FailedSources, s.typ)
			continue
		}
		result.Values = append(result.Values, values[i]...)
	}

	log.Info("collection complete",
		zap.Int("values", len(result.Values)),
		zap.Int("failed_sources", len(result.FailedSources)),
	)
	return result, nil
}

func (c *Collector) fetchOne(ctx context.Context, s source, applicationID string) ([]model.SourcedValue, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SourceTimeout)
	defer cancel()

	retry := c.cfg.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(string(s.typ), applicationID)
	}
	vals, err := resilience.Do(ctx, retry, func(ctx context.Context) ([]model.SourcedValue, error) {
		return call(ctx, s, applicationID)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "collect: fetch %s", s.typ)
	}
	return stamp(vals, s.typ), nil
}

type fetched struct {
	vals []model.SourcedValue
	err  error
}

// call runs one fetch and stops waiting when ctx is done, so a source that
// ignores its context cannot hold up the collection.
func call(ctx context.Context, s source, applicationID string) ([]model.SourcedValue, error) {
	ch := make(chan fetched, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- fetched{err: eris.Errorf("collect: %s source panicked: %v", s.typ, r)}
			}
		}()
		vals, err := s.fetch(ctx, applicationID)
		ch <- fetched{vals: vals, err: err}
	}()

	select {
	case r := <-ch:
		return r.vals, r.err
	case <-ctx.Done():
		return nil, eris.Wrapf(ctx.Err(), "collect: %s source timed out", s.typ)
	}
}

// stamp fills in the source type on records that left it blank and drops
// records without a column.
func stamp(vals []model.SourcedValue, typ model.SourceType) []model.SourcedValue {
	out := make([]model.SourcedValue, 0, len(vals))
	for _, v := range vals {
		if strings.TrimSpace(v.Column) == "" {
			continue
		}
		if v.SourceType == "" {
			v.SourceType = typ
		}
		if v.Label == "" {
			v.Label = defaultLabel(v.SourceType)
		}
		out = append(out, v)
	}
	return out
}

func defaultLabel(typ model.SourceType) string {
	switch typ {
	case model.SourceBanking:
		return "Bank Statement"
	case model.SourceClient, model.SourceForm:
		return "Client Application"
	case model.SourceOCR, model.SourceDocument:
		return "Document"
	default:
		return fmt.Sprintf("%s source", typ)
	}
}
