package service

import "github.com/shopspring/decimal"

func roundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func sharePct(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return roundTo(part/total*100, 1)
}
