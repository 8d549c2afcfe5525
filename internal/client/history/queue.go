package history

import (
	"context"
)

func (r *Reconciler) enqueue(ctx context.Context, job writeJob) {
	r.qmu.RLock()
	defer r.qmu.RUnlock()

	if r.closed {
		r.drop(ctx, job, "closed")
		return
	}

	r.inflight.Add(1)
	select {
	case r.queue <- job:
	default:
		r.inflight.Add(-1)
		r.drop(ctx, job, "queue full")
	}
}

func (r *Reconciler) drop(ctx context.Context, job writeJob, reason string) {
	r.metrics.QueueDropped()
	r.log.Warn(ctx, "remote write dropped", "op", "write", "item_id", job.item.ID, "reason", reason)
}

func (r *Reconciler) worker() {
	defer r.workers.Done()
	for job := range r.queue {
		r.write(job)
	}
}

func (r *Reconciler) write(job writeJob) {
	defer r.inflight.Add(-1)
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()
	r.archive.Write(ctx, job.cred, job.item)
}
