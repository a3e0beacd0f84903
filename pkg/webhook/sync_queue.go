package webhook

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tokmz/realtime/pkg/logger"
)

// SyncQueue 进程内 worker 池
type SyncQueue struct {
	jobs    chan *Job
	workers int
	log     logger.Logger
	timeout time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Int64
	once    sync.Once
}

// NewSyncQueue 创建进程内队列
func NewSyncQueue(workers, size int, timeout time.Duration, log logger.Logger) *SyncQueue {
	if workers <= 0 {
		workers = 10
	}
	if size <= 0 {
		size = 1000
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SyncQueue{
		jobs:    make(chan *Job, size),
		workers: workers,
		log:     log,
		timeout: timeout,
		stopCh:  make(chan struct{}),
	}
}

// Enqueue 非阻塞入队，队列满时丢弃
func (q *SyncQueue) Enqueue(_ context.Context, job *Job) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Start 启动 worker
func (q *SyncQueue) Start(handler Handler) error {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(handler)
	}
	return nil
}

func (q *SyncQueue) worker(handler Handler) {
	defer q.wg.Done()
	for {
		select {
		case job := <-q.jobs:
			q.run(handler, job)
		case <-q.stopCh:
			// 退出前处理完已入队的任务
			for {
				select {
				case job := <-q.jobs:
					q.run(handler, job)
				default:
					return
				}
			}
		}
	}
}

func (q *SyncQueue) run(handler Handler, job *Job) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	if err := handler(ctx, job); err != nil {
		q.log.Debug("webhook job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// Dropped 因队列满被丢弃的任务数
func (q *SyncQueue) Dropped() int64 {
	return q.dropped.Load()
}

// Close 停止入队并等待已入队任务完成
func (q *SyncQueue) Close() error {
	q.once.Do(func() {
		q.closed.Store(true)
		close(q.stopCh)
		q.wg.Wait()
	})
	return nil
}
