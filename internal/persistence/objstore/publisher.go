package objstore

import (
	"context"
	"log"
	"os"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Object is one pending upload.
type Object struct {
	Key         string
	Body        []byte
	ContentType string
}

// Putter is the upload side of Client.
type Putter interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	Enqueued      uint64
	Dropped       uint64
	Uploaded      uint64
	Failed        uint64
}

type PublisherConfig struct {
	// Prefix is joined in front of every key.
	Prefix        string
	Workers       int
	QueueCapacity int
	// EnqueueWait bounds how long Publish blocks on a full queue.
	EnqueueWait time.Duration
	MaxAttempts int
	Logger      *log.Logger
}

// Publisher uploads objects from a bounded queue with a fixed worker pool.
type Publisher struct {
	put    Putter
	prefix string
	logger *log.Logger

	jobs        chan Object
	enqueueWait time.Duration
	maxAttempts int
	backoff     time.Duration
	wg          sync.WaitGroup

	enqueued atomic.Uint64
	dropped  atomic.Uint64
	uploaded atomic.Uint64
	failed   atomic.Uint64
}

func NewPublisher(put Putter, cfg PublisherConfig) *Publisher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}
	if cfg.EnqueueWait <= 0 {
		cfg.EnqueueWait = 25 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	p := &Publisher{
		put:         put,
		prefix:      CleanKey(cfg.Prefix),
		logger:      cfg.Logger,
		jobs:        make(chan Object, cfg.QueueCapacity),
		enqueueWait: cfg.EnqueueWait,
		maxAttempts: cfg.MaxAttempts,
		backoff:     200 * time.Millisecond,
	}
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for obj := range p.jobs {
				p.upload(obj)
			}
		}()
	}
	return p
}

// Publish queues obj. It waits at most EnqueueWait on a full queue and
// drops the object after that.
func (p *Publisher) Publish(obj Object) {
	if p == nil {
		return
	}
	p.enqueued.Add(1)
	select {
	case p.jobs <- obj:
		return
	default:
	}
	timer := time.NewTimer(p.enqueueWait)
	defer timer.Stop()
	select {
	case p.jobs <- obj:
	case <-timer.C:
		n := p.dropped.Add(1)
		p.printf("objstore drop key=%s reason=queue_full dropped_total=%d", obj.Key, n)
	}
}

// PublishFile reads localPath and queues it under its path relative to baseDir.
func (p *Publisher) PublishFile(baseDir, localPath, contentType string) error {
	if p == nil {
		return nil
	}
	rel, err := filepath.Rel(baseDir, localPath)
	if err != nil {
		return err
	}
	body, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	p.Publish(Object{Key: filepath.ToSlash(rel), Body: body, ContentType: contentType})
	return nil
}

// Close drains the queue and waits for in-flight uploads.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	close(p.jobs)
	p.wg.Wait()
}

func (p *Publisher) Stats() Stats {
	if p == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(p.jobs),
		QueueCapacity: cap(p.jobs),
		Enqueued:      p.enqueued.Load(),
		Dropped:       p.dropped.Load(),
		Uploaded:      p.uploaded.Load(),
		Failed:        p.failed.Load(),
	}
}

func (p *Publisher) upload(obj Object) {
	key := CleanKey(obj.Key)
	if key == "" {
		p.failed.Add(1)
		p.printf("objstore skip key=%q reason=bad_key", obj.Key)
		return
	}
	if p.prefix != "" {
		key = path.Join(p.prefix, key)
	}

	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = p.put.Put(ctx, key, obj.Body, obj.ContentType)
		cancel()
		if err == nil {
			p.uploaded.Add(1)
			return
		}
		if attempt < p.maxAttempts {
			time.Sleep(time.Duration(attempt*attempt) * p.backoff)
		}
	}
	p.failed.Add(1)
	p.printf("objstore upload failed key=%s err=%v", key, err)
}

func (p *Publisher) printf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
