package promo

import (
	"fmt"
	"sync"

	"github.com/Shopify/go-lua"

	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

// eligibleFn is the global a merchant rule script must define.
const eligibleFn = "eligible"

// RuleSet holds a merchant-authored Lua script gating gift promotions.
// The script defines eligible(subtotal, item_count) returning a boolean;
// subtotal is in minor units. A nil RuleSet allows everything.
type RuleSet struct {
	mu    sync.Mutex
	state *lua.State
}

// CompileRules loads a rule script and verifies it defines the eligible
// function.
func CompileRules(script string) (*RuleSet, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	if err := lua.DoString(state, script); err != nil {
		return nil, apperrors.Wrap(apperrors.CodePromoRuleInvalid, "load rule script", err)
	}

	state.Global(eligibleFn)
	defined := state.IsFunction(-1)
	state.Pop(1)
	if !defined {
		return nil, apperrors.New(apperrors.CodePromoRuleInvalid,
			fmt.Sprintf("rule script defines no %s function", eligibleFn))
	}

	return &RuleSet{state: state}, nil
}

// Eligible evaluates the rule for a cart subtotal and item count. A nil
// receiver allows the promotion.
func (r *RuleSet) Eligible(subtotal int64, itemCount int) (bool, error) {
	if r == nil {
		return true, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Global(eligibleFn)
	r.state.PushInteger(int(subtotal))
	r.state.PushInteger(itemCount)
	if err := r.state.ProtectedCall(2, 1, 0); err != nil {
		return false, apperrors.Wrap(apperrors.CodePromoRuleInvalid, "evaluate rule", err)
	}

	allowed := r.state.ToBoolean(-1)
	r.state.Pop(1)
	return allowed, nil
}
