// Package notion reads and updates tasks stored in a Notion database.
package notion

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/logging"
)

const (
	pageSize          = 100
	relationCacheSize = 512
	relationWorkers   = 4
)

// api is the slice of the Notion client the source uses.
type api interface {
	QueryDatabase(ctx context.Context, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	GetPage(ctx context.Context, id string) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, id string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

type clientAPI struct {
	client   *notionapi.Client
	database notionapi.DatabaseID
	limiter  *rate.Limiter
}

func (c *clientAPI) QueryDatabase(ctx context.Context, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.client.Database.Query(ctx, c.database, req)
}

func (c *clientAPI) GetPage(ctx context.Context, id string) (*notionapi.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.client.Page.Get(ctx, notionapi.PageID(id))
}

func (c *clientAPI) UpdatePage(ctx context.Context, id string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.client.Page.Update(ctx, notionapi.PageID(id), req)
}

// Source is a TaskSource over one Notion database.
type Source struct {
	api            api
	props          config.NotionConfig
	defaultMinutes int
	titles         *lru.Cache[string, string]
	log            *slog.Logger
}

// New connects to the database named in cfg. Requests are throttled to
// cfg.RequestsPerSecond.
func New(cfg config.NotionConfig, defaultMinutes int, log *slog.Logger) (*Source, error) {
	if cfg.APIKey == "" || cfg.DatabaseID == "" {
		return nil, apperr.New(apperr.Configuration, "notion source needs NOTION_API_KEY and NOTION_DATABASE_ID")
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 3
	}
	c := &clientAPI{
		client:   notionapi.NewClient(notionapi.Token(cfg.APIKey)),
		database: notionapi.DatabaseID(cfg.DatabaseID),
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
	return newSource(c, cfg, defaultMinutes, log)
}

func newSource(a api, cfg config.NotionConfig, defaultMinutes int, log *slog.Logger) (*Source, error) {
	titles, err := lru.New[string, string](relationCacheSize)
	if err != nil {
		return nil, err
	}
	return &Source{
		api:            a,
		props:          cfg,
		defaultMinutes: defaultMinutes,
		titles:         titles,
		log:            logging.OrDiscard(log),
	}, nil
}

func isNotFound(err error) bool {
	var nerr *notionapi.Error
	return errors.As(err, &nerr) && nerr.Status == http.StatusNotFound
}
