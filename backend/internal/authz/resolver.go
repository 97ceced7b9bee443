// Package authz 解析请求作用于哪所学校
//
// 学生数据的每一次读写都必须先经过 Resolver：它是防止跨校数据泄漏的唯一闸门。
package authz

import (
	"context"
	"fmt"
)

// Ledger 用户-学校分配台账的只读视图
type Ledger interface {
	IsPermitted(ctx context.Context, userID, schoolID uint64) (bool, error)
	DefaultSchoolFor(ctx context.Context, userID uint64) (*uint64, error)
	ListSchoolIDs(ctx context.Context, userID uint64) ([]uint64, error)
}

// Outcome 解析结果类型
type Outcome int

const (
	// Forbidden 请求的学校不在授权范围内，或用户没有任何学校
	Forbidden Outcome = iota
	// Resolved 已确定唯一学校
	Resolved
	// SelectionRequired 有多所候选学校且未指定，需要客户端显式选择
	SelectionRequired
)

// String 实现 fmt.Stringer，同时用作 API 输出
func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case SelectionRequired:
		return "selection_required"
	case Forbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Resolution 一次解析的完整结果
type Resolution struct {
	Outcome Outcome
	// SchoolID 仅 Outcome == Resolved 时有效
	SchoolID uint64
	// Candidates 仅 Outcome == SelectionRequired 时有值，升序
	Candidates []uint64
}

// Resolver 学校上下文解析器
type Resolver struct {
	ledger Ledger
}

// NewResolver 创建 Resolver
func NewResolver(ledger Ledger) *Resolver {
	return &Resolver{ledger: ledger}
}

// Resolve 按以下顺序确定学校：
//  1. 显式指定 requested 时，仅当台账允许才 Resolved，否则 Forbidden
//  2. 默认学校仍在授权范围内则使用默认学校
//  3. 恰好一所授权学校时使用它；多所时 SelectionRequired；零所时 Forbidden
//
// 返回的 error 只表示台账读取失败。
func (r *Resolver) Resolve(ctx context.Context, userID uint64, requested *uint64) (Resolution, error) {
	if requested != nil {
		ok, err := r.ledger.IsPermitted(ctx, userID, *requested)
		if err != nil {
			return Resolution{}, err
		}
		if !ok {
			return Resolution{Outcome: Forbidden}, nil
		}
		return Resolution{Outcome: Resolved, SchoolID: *requested}, nil
	}

	def, err := r.ledger.DefaultSchoolFor(ctx, userID)
	if err != nil {
		return Resolution{}, err
	}
	if def != nil {
		ok, err := r.ledger.IsPermitted(ctx, userID, *def)
		if err != nil {
			return Resolution{}, err
		}
		if ok {
			return Resolution{Outcome: Resolved, SchoolID: *def}, nil
		}
		// 默认学校已失效（被移出分配或学校被删除），按未设置处理
	}

	ids, err := r.ledger.ListSchoolIDs(ctx, userID)
	if err != nil {
		return Resolution{}, err
	}
	switch len(ids) {
	case 0:
		return Resolution{Outcome: Forbidden}, nil
	case 1:
		return Resolution{Outcome: Resolved, SchoolID: ids[0]}, nil
	default:
		return Resolution{Outcome: SelectionRequired, Candidates: ids}, nil
	}
}
