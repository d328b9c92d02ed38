package listing

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/simaogato/budgetline-backend/internal/domain"
)

// Fetch runs the page query and the count query concurrently and assembles a Page.
// An unpaginated request (negative limit) reports the page length as the total.
func Fetch[T any](
	ctx context.Context,
	params domain.ListParams,
	list func(ctx context.Context) ([]T, error),
	count func(ctx context.Context) (int, error),
) (domain.Page[T], error) {
	params = params.Normalize()

	var (
		items []T
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = list(gctx)
		return err
	})
	if params.Limit >= 0 {
		g.Go(func() error {
			var err error
			total, err = count(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Page[T]{}, err
	}

	if items == nil {
		items = []T{}
	}
	if params.Limit < 0 {
		total = len(items)
	}

	return domain.Page[T]{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}, nil
}
