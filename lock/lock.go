package lock

import (
	"context"

	"github.com/pkg/errors"
)

// ErrLocked 锁已被其他进程持有
var ErrLocked = errors.New("lock is held by another process")

// Release 释放锁，锁已过期或被他人持有时不做任何操作
type Release func(ctx context.Context) error

// Locker 防止多个进程同时向同一张表导入
type Locker interface {
	Acquire(ctx context.Context, name string) (Release, error)
}

// NopLocker 未配置锁服务时使用，总是成功
type NopLocker struct{}

func (NopLocker) Acquire(ctx context.Context, name string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}
