package domain

import (
	"errors"
	"math"
	"testing"
)

// almostEqual 浮点近似相等
func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

// referenceSpec 经典参数：S=100, K=100, T=1, r=0.05, σ=0.2, q=0
func referenceSpec(t OptionType) OptionSpec {
	return OptionSpec{S: 100, K: 100, T: 1, R: 0.05, Sigma: 0.2, Q: 0, Type: t}
}

func TestBlackScholesPrice_ReferenceCase(t *testing.T) {
	// 标准 Black-Scholes 参考值：Call≈10.4506, Put≈5.5735
	call, err := BlackScholesPrice(referenceSpec(OptionTypeCall))
	if err != nil {
		t.Fatalf("call err: %v", err)
	}
	put, err := BlackScholesPrice(referenceSpec(OptionTypePut))
	if err != nil {
		t.Fatalf("put err: %v", err)
	}

	if !almostEqual(call, 10.450583572185565, 1e-9) {
		t.Fatalf("call price mismatch: got=%v", call)
	}
	if !almostEqual(put, 5.573526022256971, 1e-9) {
		t.Fatalf("put price mismatch: got=%v", put)
	}
}

func TestBlackScholesPrice_PutCallParity(t *testing.T) {
	// Put-Call Parity: C - P = S·e^(-qT) - K·e^(-rT)
	cases := []struct {
		name string
		spec OptionSpec
	}{
		{"no_dividend", OptionSpec{S: 100, K: 100, T: 1, R: 0.05, Sigma: 0.2}},
		{"with_dividend", OptionSpec{S: 150, K: 175, T: 0.5, R: 0.0426, Sigma: 0.25, Q: 0.02}},
		{"deep_itm_call", OptionSpec{S: 200, K: 100, T: 2, R: 0.03, Sigma: 0.4}},
		{"short_expiry", OptionSpec{S: 95, K: 100, T: 0.02, R: 0.01, Sigma: 0.6}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			callSpec := tc.spec
			callSpec.Type = OptionTypeCall
			putSpec := tc.spec
			putSpec.Type = OptionTypePut

			call, err := BlackScholesPrice(callSpec)
			if err != nil {
				t.Fatalf("call err: %v", err)
			}
			put, err := BlackScholesPrice(putSpec)
			if err != nil {
				t.Fatalf("put err: %v", err)
			}

			left := call - put
			right := tc.spec.S*math.Exp(-tc.spec.Q*tc.spec.T) - tc.spec.K*math.Exp(-tc.spec.R*tc.spec.T)
			if !almostEqual(left, right, 1e-9) {
				t.Fatalf("parity mismatch: C-P=%v expected=%v", left, right)
			}
		})
	}
}

func TestBlackScholesPrice_MonotoneInVolatility(t *testing.T) {
	// 价格对 σ 单调不减，这是二分法回退阶段的正确性前提
	for _, optType := range []OptionType{OptionTypeCall, OptionTypePut} {
		prev := math.Inf(-1)
		for sigma := 0.01; sigma <= 3.0; sigma += 0.01 {
			spec := referenceSpec(optType)
			spec.Sigma = sigma
			price, err := BlackScholesPrice(spec)
			if err != nil {
				t.Fatalf("err at sigma=%v: %v", sigma, err)
			}
			if price < prev-1e-12 {
				t.Fatalf("%s price decreased at sigma=%v: %v < %v", optType, sigma, price, prev)
			}
			prev = price
		}
	}
}

func TestBlackScholesPrice_ZeroTimeToExpiry(t *testing.T) {
	// T=0 时退化为内在价值，不允许出现除零导致的 NaN
	call, err := BlackScholesPrice(OptionSpec{S: 90, K: 100, T: 0, R: 0.05, Sigma: 0.2, Type: OptionTypeCall})
	if err != nil {
		t.Fatalf("call err: %v", err)
	}
	if call != 0 {
		t.Fatalf("expired OTM call should be worthless: got=%v", call)
	}

	put, err := BlackScholesPrice(OptionSpec{S: 90, K: 100, T: 0, R: 0.05, Sigma: 0.2, Type: OptionTypePut})
	if err != nil {
		t.Fatalf("put err: %v", err)
	}
	if put != 10 {
		t.Fatalf("expired ITM put intrinsic mismatch: got=%v", put)
	}
}

func TestBlackScholesPrice_ZeroVolatility(t *testing.T) {
	// σ=0 时价格是确定性收益的贴现值
	spec := OptionSpec{S: 110, K: 100, T: 1, R: 0.05, Sigma: 0, Type: OptionTypeCall}
	price, err := BlackScholesPrice(spec)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := 110 - 100*math.Exp(-0.05)
	if !almostEqual(price, want, 1e-9) {
		t.Fatalf("zero-vol call mismatch: got=%v want=%v", price, want)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		t.Fatalf("price is not finite: %v", price)
	}
}

func TestBlackScholesPrice_InvalidInput(t *testing.T) {
	cases := []struct {
		name    string
		spec    OptionSpec
		wantErr error
	}{
		{"non_positive_spot", OptionSpec{S: 0, K: 100, T: 1, Sigma: 0.2, Type: OptionTypeCall}, ErrInvalidSpec},
		{"non_positive_strike", OptionSpec{S: 100, K: -1, T: 1, Sigma: 0.2, Type: OptionTypeCall}, ErrInvalidSpec},
		{"negative_expiry", OptionSpec{S: 100, K: 100, T: -0.1, Sigma: 0.2, Type: OptionTypePut}, ErrInvalidSpec},
		{"negative_volatility", OptionSpec{S: 100, K: 100, T: 1, Sigma: -0.2, Type: OptionTypePut}, ErrInvalidSpec},
		{"unknown_type", OptionSpec{S: 100, K: 100, T: 1, Sigma: 0.2, Type: "STRADDLE"}, ErrInvalidOptionType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := BlackScholesPrice(tc.spec); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCalculateBlackScholes_D1D2(t *testing.T) {
	// d2 = d1 - σ√T
	spec := referenceSpec(OptionTypeCall)
	result, err := CalculateBlackScholes(spec)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !almostEqual(result.D2, result.D1-spec.Sigma*math.Sqrt(spec.T), 1e-12) {
		t.Fatalf("d2 inconsistent with d1: d1=%v d2=%v", result.D1, result.D2)
	}
	if !almostEqual(result.D1, 0.35, 1e-9) {
		t.Fatalf("d1 mismatch: got=%v", result.D1)
	}
}

func TestParseOptionType(t *testing.T) {
	// 边界处大小写不敏感
	for _, raw := range []string{"call", "CALL", "Call", " call "} {
		got, err := ParseOptionType(raw)
		if err != nil || got != OptionTypeCall {
			t.Fatalf("ParseOptionType(%q) = %v, %v", raw, got, err)
		}
	}
	if got, err := ParseOptionType("put"); err != nil || got != OptionTypePut {
		t.Fatalf("ParseOptionType(put) = %v, %v", got, err)
	}
	if _, err := ParseOptionType("butterfly"); !errors.Is(err, ErrInvalidOptionType) {
		t.Fatalf("expected ErrInvalidOptionType, got %v", err)
	}
}
