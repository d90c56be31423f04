package generator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/krampattern/kram-api/internal/kramai"
)

// DefaultBatchConcurrency bounds concurrent image calls per batch.
const DefaultBatchConcurrency = 2

// DefaultBatchPause is the fixed delay between batches.
const DefaultBatchPause = 2 * time.Second

// BatchItem pairs one prompt with its outcome.
type BatchItem struct {
	Prompt string
	Result kramai.ImageResult
	Err    error
}

// GenerateBatchImages issues image generations for each prompt, at most
// concurrency at a time, sleeping pause between batches. This bounds load
// on the external API; items are independent and failures do not stop the
// rest of the batch. Nothing is persisted here.
func (g *Generator) GenerateBatchImages(ctx context.Context, prompts []string, opts kramai.ImageOptions, concurrency int, pause time.Duration) []BatchItem {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	logger := zerolog.Ctx(ctx)

	items := make([]BatchItem, len(prompts))
	for i, p := range prompts {
		items[i] = BatchItem{Prompt: p}
	}

	for base := 0; base < len(items); base += concurrency {
		end := base + concurrency
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := base; i < end; i++ {
			wg.Add(1)
			go func(item *BatchItem) {
				defer wg.Done()
				item.Result, item.Err = kramai.Retry(ctx, g.retry, func(ctx context.Context) (kramai.ImageResult, error) {
					return g.ai.GenerateImage(ctx, item.Prompt, opts)
				})
			}(&items[i])
		}
		wg.Wait()

		if end < len(items) && pause > 0 {
			logger.Debug().Int("completed", end).Int("total", len(items)).Msg("batch pause")
			select {
			case <-ctx.Done():
				for i := end; i < len(items); i++ {
					items[i].Err = ctx.Err()
				}
				return items
			case <-time.After(pause):
			}
		}
	}
	return items
}
