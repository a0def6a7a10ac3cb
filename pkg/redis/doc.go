// Package redis wraps go-redis with a retrying Connect and
// a small JSON read-through cache used for account status lookups.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	statuses := redis.NewJSONCache[string](client, cfg.KeyPrefix+"account-status:", time.Minute)
package redis
