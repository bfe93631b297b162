package controller

import (
	"context"

	"golang.org/x/sync/errgroup"

	"marketdash/internal/domain"
)

// fetchDetail runs the three detail requests concurrently and assembles them
// only when every one succeeded. The first failure cancels the others.
func (c *Controller) fetchDetail(ctx context.Context, symbol string) (*domain.StockDetail, error) {
	now := c.opts.Now().UTC()
	from := now.Add(-c.opts.DetailNewsWindow)

	var (
		quote   domain.Quote
		profile *domain.CompanyProfile
		news    []domain.NewsItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := c.gw.Quote(gctx, symbol)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	g.Go(func() error {
		p, err := c.gw.CompanyProfile(gctx, symbol)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		items, err := c.gw.CompanyNews(gctx, symbol, from, now)
		if err != nil {
			return err
		}
		news = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.StockDetail{
		Symbol:     symbol,
		Quote:      quote,
		Profile:    profile,
		RecentNews: truncate(news, c.opts.DetailNewsLimit),
	}, nil
}
