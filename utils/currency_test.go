package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{name: "zero", amount: "0", want: "Rp 0,00"},
		{name: "hundreds", amount: "200", want: "Rp 200,00"},
		{name: "thousands with cents", amount: "15000.5", want: "Rp 15.000,50"},
		{name: "millions", amount: "1234567.891", want: "Rp 1.234.567,89"},
		{name: "negative", amount: "-2500", want: "-Rp 2.500,00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestClamp(t *testing.T) {
	lo := decimal.Zero
	hi := decimal.NewFromInt(200)

	assert.True(t, Clamp(decimal.NewFromInt(500), lo, hi).Equal(hi))
	assert.True(t, Clamp(decimal.NewFromInt(-5), lo, hi).Equal(lo))
	assert.True(t, Clamp(decimal.NewFromInt(20), lo, hi).Equal(decimal.NewFromInt(20)))
	assert.True(t, ClampMin(decimal.NewFromInt(-1), lo).Equal(lo))
}
