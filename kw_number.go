package jsonschema

import (
	"fmt"
	"math"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

func genMaximum(c cctx, m map[string]any, _ any) (validateFunc, error) {
	return genLimit(c, m, "maximum", "exclusiveMaximum", true)
}

func genMinimum(c cctx, m map[string]any, _ any) (validateFunc, error) {
	return genLimit(c, m, "minimum", "exclusiveMinimum", false)
}

// bound is one evaluated limit.
type bound struct {
	site      *errSite
	raw       any
	limit     float64
	exclusive bool
}

// genLimit compiles a limit keyword together with its exclusive form. The
// exclusive keyword is a number (draft-06+) or a boolean modifier (draft-04).
// When both bounds are numbers only the stricter one is checked.
func genLimit(c cctx, m map[string]any, kw, exkw string, isMax bool) (validateFunc, error) {
	var limitOp, exOp *operand
	modifier := false
	if v, ok := m[kw]; ok {
		op, err := c.operand(kw, v, isNumber, "number")
		if err != nil {
			return nil, err
		}
		limitOp = &op
	}
	if v, ok := m[exkw]; ok {
		if b, isBool := v.(bool); isBool {
			modifier = b
		} else {
			op, err := c.operand(exkw, v, isNumber, "number")
			if err != nil {
				return nil, err
			}
			exOp = &op
		}
	}
	if limitOp == nil && exOp == nil {
		return nil, nil
	}
	limitSite := c.site(kw, m[kw])
	if modifier {
		limitSite = c.site(exkw, m[exkw])
	}
	exSite := c.site(exkw, m[exkw])

	stricter := func(a, b float64) bool {
		if isMax {
			return a <= b
		}
		return a >= b
	}
	report := func(s *state, f *frame, b bound) {
		cmp := ">="
		if isMax {
			cmp = "<="
		}
		if b.exclusive {
			cmp = cmp[:1]
		}
		b.site.add(s, f, map[string]any{"comparison": cmp, "limit": b.raw, "exclusive": b.exclusive},
			fmt.Sprintf("should be %s %v", cmp, b.raw))
	}

	return func(s *state, f *frame) bool {
		x, _ := jsonvalue.ToFloat(f.data)
		var chosen *bound
		for _, cand := range []struct {
			op        *operand
			site      *errSite
			exclusive bool
		}{{limitOp, limitSite, modifier}, {exOp, exSite, true}} {
			if cand.op == nil {
				continue
			}
			raw, ok := cand.op.get(s, f)
			if !ok {
				continue
			}
			lim, ok := jsonvalue.ToFloat(raw)
			if !ok {
				report(s, f, bound{site: cand.site, raw: raw, exclusive: cand.exclusive})
				return false
			}
			b := &bound{site: cand.site, raw: raw, limit: lim, exclusive: cand.exclusive}
			if chosen == nil || (stricter(b.limit, chosen.limit) && (b.exclusive || b.limit != chosen.limit)) {
				chosen = b
			}
		}
		if chosen == nil {
			return true
		}
		var ok bool
		switch {
		case isMax && chosen.exclusive:
			ok = x < chosen.limit
		case isMax:
			ok = x <= chosen.limit
		case chosen.exclusive:
			ok = x > chosen.limit
		default:
			ok = x >= chosen.limit
		}
		if !ok {
			report(s, f, *chosen)
		}
		return ok
	}, nil
}

func genMultipleOf(c cctx, m map[string]any, value any) (validateFunc, error) {
	positive := func(v any) bool {
		f, ok := jsonvalue.ToFloat(v)
		return ok && f > 0
	}
	op, err := c.operand("multipleOf", value, positive, "a number greater than 0")
	if err != nil {
		return nil, err
	}
	site := c.site("multipleOf", value)
	precision := c.opts().MultipleOfPrecision
	return func(s *state, f *frame) bool {
		raw, ok := op.get(s, f)
		if !ok {
			return true
		}
		x, _ := jsonvalue.ToFloat(f.data)
		div, ok := jsonvalue.ToFloat(raw)
		if ok && div > 0 && isMultiple(x, div, precision) {
			return true
		}
		site.add(s, f, map[string]any{"multipleOf": raw}, fmt.Sprintf("should be multiple of %v", raw))
		return false
	}, nil
}

func isMultiple(x, div float64, precision int) bool {
	q := x / div
	if math.IsInf(q, 0) || math.IsNaN(q) {
		return false
	}
	if precision > 0 {
		return math.Abs(math.Round(q)-q) < math.Pow10(-precision)
	}
	return q == math.Trunc(q)
}
