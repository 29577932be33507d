package promotion

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func newProgress(p *Promotion, typ ProgressType, current, target decimal.Decimal) *Progress {
	remaining := floorAtZero(target.Sub(current))
	return &Progress{
		Promotion: p,
		Type:      typ,
		Current:   current,
		Target:    target,
		Remaining: remaining,
		Message:   progressMessage(p.Name, typ, remaining),
	}
}

func progressMessage(name string, typ ProgressType, remaining decimal.Decimal) string {
	switch typ {
	case ProgressQuantity:
		return fmt.Sprintf("Plus que %d article(s) pour profiter de « %s »", remaining.IntPart(), name)
	case ProgressBuyXGetY:
		return fmt.Sprintf("Ajoutez %d article(s) pour profiter de « %s »", remaining.IntPart(), name)
	default:
		return fmt.Sprintf("Plus que %s € pour profiter de « %s »", remaining.StringFixed(2), name)
	}
}
