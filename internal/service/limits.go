package service

import (
	"todo-planner/internal/model"
	"todo-planner/internal/ratelimit"
)

// RateLimiter throttles user actions. *ratelimit.Limiter implements it.
type RateLimiter interface {
	Allow(action ratelimit.Action, key string) error
}

func allow(l RateLimiter, action ratelimit.Action, user *model.User) error {
	if l == nil {
		return nil
	}
	return l.Allow(action, userKey(user))
}
