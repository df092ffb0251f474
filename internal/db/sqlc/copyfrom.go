package sqlc

import (
	"context"
)

// iteratorForEnqueueItems implements pgx.CopyFromSource.
type iteratorForEnqueueItems struct {
	rows                 []EnqueueItemsParams
	skippedFirstNextCall bool
}

func (r *iteratorForEnqueueItems) Next() bool {
	if len(r.rows) == 0 {
		return false
	}
	if !r.skippedFirstNextCall {
		r.skippedFirstNextCall = true
		return true
	}
	r.rows = r.rows[1:]
	return len(r.rows) > 0
}

func (r iteratorForEnqueueItems) Values() ([]interface{}, error) {
	return []interface{}{
		r.rows[0].QueueName,
		r.rows[0].Kind,
		r.rows[0].SourceURL,
		r.rows[0].Metadata,
	}, nil
}

func (r iteratorForEnqueueItems) Err() error {
	return nil
}

func (q *Queries) EnqueueItems(ctx context.Context, arg []EnqueueItemsParams) (int64, error) {
	return q.db.CopyFrom(ctx, []string{"work_queue"}, []string{"queue_name", "kind", "source_url", "metadata"}, &iteratorForEnqueueItems{rows: arg})
}
