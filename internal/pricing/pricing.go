package pricing

import (
	"github.com/shopspring/decimal"

	"pomelo/internal/pkg/apperr"
)

// rate 每百万 token 的美元价
type rate struct {
	input  decimal.Decimal
	output decimal.Decimal
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// rates 计价表，按模型名索引
var rates = map[string]rate{
	"gpt-4o":                     {d("2.5"), d("10")},
	"o1-mini":                    {d("3"), d("12")},
	"o1-preview":                 {d("15"), d("60")},
	"gpt-4o-mini":                {d("0.15"), d("0.6")},
	"claude-3-haiku-20240307":    {d("0.25"), d("1.25")},
	"claude-3-5-sonnet-20240620": {d("3"), d("15")},
	"meta-llama/Llama-3.2-3B-Instruct-Turbo":    {d("0.06"), d("0.06")},
	"meta-llama/Meta-Llama-3-8B-Instruct-Turbo": {d("0.18"), d("0.18")},
	"gemini-1.5-flash":                          {d("0.075"), d("0.3")},
}

var (
	million = d("1000000")
	// markup 成本转积分前的加价系数
	markup = d("1.05")
	// resellMultiplier AIML 转售渠道的价差
	resellMultiplier = d("1.30")
)

// Cost 一次调用的成本结果
type Cost struct {
	AICost          decimal.Decimal // 原始上游成本（美元，8位小数）
	CreditsUtilised decimal.Decimal // 扣减的积分（8位小数）
}

// Compute 按模型与用量计算成本和积分
// resold 为真时（AIML 渠道）两端费率乘以 1.30
func Compute(model string, resold bool, inputUnits, outputUnits int64, costFactor float64) (*Cost, error) {
	r, ok := rates[model]
	if !ok {
		return nil, apperr.UnknownModel(model)
	}

	inputRate, outputRate := r.input, r.output
	if resold {
		inputRate = inputRate.Mul(resellMultiplier)
		outputRate = outputRate.Mul(resellMultiplier)
	}

	in := decimal.NewFromInt(inputUnits).Mul(inputRate).Div(million)
	out := decimal.NewFromInt(outputUnits).Mul(outputRate).Div(million)
	raw := in.Add(out).Round(8)

	credits := raw.Mul(markup).Mul(decimal.NewFromFloat(costFactor)).Round(8)

	return &Cost{AICost: raw, CreditsUtilised: credits}, nil
}

// CheckCredits 余额门槛检查，balance == minimum 通过
func CheckCredits(balance, minimum decimal.Decimal) error {
	if balance.LessThan(minimum) {
		return apperr.InsufficientCredits()
	}
	return nil
}
