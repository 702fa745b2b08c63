package fanout

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Call 扇出中的一个成员
type Call struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Named 创建扇出成员
func Named(name string, fn func(ctx context.Context) error) Call {
	return Call{Name: name, Fn: fn}
}

// Failure 失败的成员
type Failure struct {
	Name string
	Err  error
}

// PartialFetchFailure 扇出中至少一个成员失败
type PartialFetchFailure struct {
	Total    int
	Failures []Failure // 按成员声明顺序
}

func (e *PartialFetchFailure) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Name, f.Err))
	}
	return fmt.Sprintf("%d of %d fetches failed: %s", len(e.Failures), e.Total, strings.Join(parts, "; "))
}

// Unwrap 暴露所有成员错误，便于 errors.As 匹配网关错误类型
func (e *PartialFetchFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// FailedNames 失败成员名称
func (e *PartialFetchFailure) FailedNames() []string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Name)
	}
	return names
}

// All 并发执行所有成员并等待全部完成（join-all），任一失败则整体失败（fail-all）
// 成员之间互不取消：屏障总是等到每个请求结束，失败按成员声明顺序收集
func All(ctx context.Context, calls ...Call) error {
	var (
		g    errgroup.Group // 不带 ctx：一个成员失败不取消其他成员
		errs = make([]error, len(calls))
	)

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			errs[i] = call.Fn(ctx)
			return errs[i]
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}

	var failures []Failure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure{Name: calls[i].Name, Err: err})
		}
	}
	return &PartialFetchFailure{Total: len(calls), Failures: failures}
}
