package store

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/cvyl/cloudflare-websocket-livecount/config"
)

type entry struct {
	room  string
	count int
}

// Redis persists room counts so they can be inspected after a restart.
// Writes go through a small queue serviced by one goroutine; a full
// queue drops the write rather than blocking the counting path, and
// write errors are logged, never returned.
type Redis struct {
	rdb    *redis.Client
	prefix string
	log    *slog.Logger
	queue  chan entry
	done   chan struct{}
}

// NewRedis connects to redis, verifies connectivity, and starts the
// write worker. Keys are namespaced by the configured counter name.
func NewRedis(ctx context.Context, cfg config.Config, log *slog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	s := &Redis{
		rdb:    rdb,
		prefix: "count:" + cfg.CounterName + ":",
		log:    log,
		queue:  make(chan entry, 256),
		done:   make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Put queues a count write without blocking. A count of zero deletes the
// room's key.
func (s *Redis) Put(room string, count int) {
	select {
	case s.queue <- entry{room: room, count: count}:
	default:
		s.log.Debug("persist queue full, dropping write", "room", room)
	}
}

func (s *Redis) run() {
	ctx := context.Background()
	for {
		select {
		case e := <-s.queue:
			var err error
			if e.count == 0 {
				err = s.rdb.Del(ctx, s.prefix+e.room).Err()
			} else {
				err = s.rdb.Set(ctx, s.prefix+e.room, e.count, 0).Err()
			}
			if err != nil {
				s.log.Warn("persist failed", "room", e.room, "error", err)
			}
		case <-s.done:
			return
		}
	}
}

// Counts reads back every persisted count for this instance.
func (s *Redis) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int)
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		n, err := s.rdb.Get(ctx, key).Int()
		if err != nil {
			continue
		}
		out[strings.TrimPrefix(key, s.prefix)] = n
	}
	return out, iter.Err()
}

// Close stops the write worker and closes the redis connection. Queued
// writes not yet flushed are lost, which best-effort persistence allows.
func (s *Redis) Close() {
	close(s.done)
	_ = s.rdb.Close()
}
