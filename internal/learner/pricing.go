package learner

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/five82/scholar/internal/api"
)

// Coupon amount types.
const (
	CouponPercentDiscount = "percent-discount"
	CouponFixedDiscount   = "fixed-discount"
	CouponFixedPrice      = "fixed-price"
)

// Coupon content types.
const (
	CouponForProgram = "program"
	CouponForCourse  = "course"
)

// MergeCoupons folds attached coupons into the cached list. A learner holds
// at most one coupon per program, so a new coupon replaces the previous one
// for the same program.
func MergeCoupons(prev, next []api.Coupon) []api.Coupon {
	out := slices.Clone(prev)
	for _, c := range next {
		i := slices.IndexFunc(out, func(p api.Coupon) bool { return p.ProgramID == c.ProgramID })
		if i >= 0 {
			out[i] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

// CouponFor returns the coupon applying to programID, if any.
func CouponFor(coupons []api.Coupon, programID int64) (api.Coupon, bool) {
	for _, c := range coupons {
		if c.ProgramID == programID {
			return c, true
		}
	}
	return api.Coupon{}, false
}

// AdjustedPrice applies coupon to price and rounds to cents. The result is
// never negative. A nil coupon or an unparsable amount leaves the price
// unchanged.
func AdjustedPrice(price float64, coupon *api.Coupon) float64 {
	if coupon == nil {
		return price
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(coupon.Amount), 64)
	if err != nil || amount < 0 {
		return price
	}
	adjusted := price
	switch coupon.AmountType {
	case CouponPercentDiscount:
		adjusted = price * (1 - math.Min(amount, 1))
	case CouponFixedDiscount:
		adjusted = price - amount
	case CouponFixedPrice:
		adjusted = amount
	}
	return math.Round(max(adjusted, 0)*100) / 100
}

// PriceFor returns the price entry for programID.
func PriceFor(prices []api.CoursePrice, programID int64) (api.CoursePrice, bool) {
	for _, p := range prices {
		if p.ProgramID == programID {
			return p, true
		}
	}
	return api.CoursePrice{}, false
}

// SearchPrograms returns the programs whose title contains query, ignoring
// case. An empty query returns all programs.
func SearchPrograms(programs []api.DashboardProgram, query string) []api.DashboardProgram {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return programs
	}
	var out []api.DashboardProgram
	for _, p := range programs {
		if strings.Contains(strings.ToLower(p.Title), q) {
			out = append(out, p)
			continue
		}
		for _, c := range p.Courses {
			if strings.Contains(strings.ToLower(c.Title), q) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
