package protect

import (
	"context"
	"time"

	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// runWithTimeout 在超时守卫下执行操作，d <= 0 表示不限制。
//
// 超时后立即向调用方返回 TimeoutError，派生 context 同时被取消；
// 底层操作是否真正停止取决于它自己对 context 的响应。
func runWithTimeout(ctx context.Context, d time.Duration, op Operation) (any, error) {
	if d <= 0 {
		return op(ctx)
	}

	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	// 缓冲为 1，超时放弃后操作 goroutine 仍可写入并退出
	done := make(chan outcome, 1)

	go func() {
		result, err := op(tctx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-tctx.Done():
		if xerrors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, xerrors.NewTimeoutError(d)
		}
		return nil, tctx.Err()
	}
}
