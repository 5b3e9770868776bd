package pricing

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/shopspring/decimal"

	"pomelo/internal/pkg/apperr"
)

// TestCompute 测试成本与积分计算
func TestCompute(t *testing.T) {
	Convey("成本计算测试", t, func() {
		Convey("gpt-4o 基准：100万入 + 100万出", func() {
			cost, err := Compute("gpt-4o", false, 1_000_000, 1_000_000, 1000)
			So(err, ShouldBeNil)
			// 2.5 + 10 = 12.5 美元
			So(cost.AICost.String(), ShouldEqual, "12.5")
			// 12.5 * 1.05 * 1000 = 13125
			So(cost.CreditsUtilised.String(), ShouldEqual, "13125")
		})

		Convey("用量单调性：更多 token 成本不减", func() {
			small, err := Compute("gpt-4o", false, 100, 100, 1000)
			So(err, ShouldBeNil)
			large, err := Compute("gpt-4o", false, 200, 200, 1000)
			So(err, ShouldBeNil)
			So(large.AICost.GreaterThanOrEqual(small.AICost), ShouldBeTrue)
			So(large.CreditsUtilised.GreaterThanOrEqual(small.CreditsUtilised), ShouldBeTrue)
		})

		Convey("转售渠道两端费率乘 1.30", func() {
			direct, err := Compute("gpt-4o", false, 1_000_000, 1_000_000, 1000)
			So(err, ShouldBeNil)
			resold, err := Compute("gpt-4o", true, 1_000_000, 1_000_000, 1000)
			So(err, ShouldBeNil)

			expected := direct.AICost.Mul(decimal.RequireFromString("1.30")).Round(8)
			So(resold.AICost.Equal(expected), ShouldBeTrue)
		})

		Convey("积分与成本系数成正比", func() {
			base, err := Compute("gemini-1.5-flash", false, 500_000, 500_000, 1000)
			So(err, ShouldBeNil)
			doubled, err := Compute("gemini-1.5-flash", false, 500_000, 500_000, 2000)
			So(err, ShouldBeNil)

			So(doubled.CreditsUtilised.Equal(base.CreditsUtilised.Mul(decimal.NewFromInt(2))), ShouldBeTrue)
			// 原始成本与系数无关
			So(doubled.AICost.Equal(base.AICost), ShouldBeTrue)
		})

		Convey("结果保留 8 位小数", func() {
			cost, err := Compute("gpt-4o-mini", false, 7, 13, 1000)
			So(err, ShouldBeNil)
			So(cost.AICost.Exponent(), ShouldBeGreaterThanOrEqualTo, -8)
			So(cost.CreditsUtilised.Exponent(), ShouldBeGreaterThanOrEqualTo, -8)
		})

		Convey("未知模型返回 UnknownModel", func() {
			_, err := Compute("gpt-5-ultra", false, 100, 100, 1000)
			So(err, ShouldNotBeNil)

			var appErr *apperr.Error
			So(errors.As(err, &appErr), ShouldBeTrue)
			So(appErr.Code, ShouldEqual, 50203)
			So(appErr.Kind, ShouldEqual, apperr.KindUpstream)
		})

		Convey("零用量成本为零", func() {
			cost, err := Compute("gpt-4o", false, 0, 0, 1000)
			So(err, ShouldBeNil)
			So(cost.AICost.IsZero(), ShouldBeTrue)
			So(cost.CreditsUtilised.IsZero(), ShouldBeTrue)
		})
	})
}

// TestCheckCredits 测试余额门槛
func TestCheckCredits(t *testing.T) {
	Convey("余额门槛测试", t, func() {
		minimum := decimal.RequireFromString("10")

		Convey("余额等于门槛时通过", func() {
			So(CheckCredits(decimal.RequireFromString("10"), minimum), ShouldBeNil)
		})

		Convey("余额高于门槛时通过", func() {
			So(CheckCredits(decimal.RequireFromString("10.00000001"), minimum), ShouldBeNil)
		})

		Convey("余额略低于门槛时拒绝", func() {
			err := CheckCredits(decimal.RequireFromString("9.99999999"), minimum)
			So(err, ShouldNotBeNil)

			var appErr *apperr.Error
			So(errors.As(err, &appErr), ShouldBeTrue)
			So(appErr.Code, ShouldEqual, 40301)
			So(appErr.Kind, ShouldEqual, apperr.KindPermission)
		})
	})
}
