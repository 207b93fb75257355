package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// InitRedis принимает адрес явно (а не через os.Getenv).
// Пустой адрес отключает кэш: возвращается nil.
func InitRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
