package repository

import "github.com/redis/go-redis/v9"

func newClientLike(opts *redis.Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}
