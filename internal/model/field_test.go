package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Len(t, r.Columns, len(DefaultColumns))

	def := r.ByKey("req_business_address")
	require.NotNil(t, def)
	assert.Equal(t, "Business Address", def.Title)
	assert.Equal(t, KindText, def.Kind)

	assert.Nil(t, r.ByKey("nonexistent"))
}

func TestColumnRegistry_Title(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, "Owner SIN", r.Title("req_owner_sin"))
	assert.Equal(t, "Gst Number", r.Title("req_gst_number"))
}

func TestColumnRegistry_BankColumn(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, "req_business_address", r.BankColumn("address"))
	assert.Equal(t, "req_business_address", r.BankColumn("  Account_Holder_Address "))
	assert.Equal(t, "bank_average_daily_balance", r.BankColumn("avg_daily_balance"))
	assert.Equal(t, "opening_balance", r.BankColumn("opening_balance"))
}

func TestNewColumnRegistry_Custom(t *testing.T) {
	r := NewColumnRegistry(
		[]ColumnDef{{Key: "req_gst_number", Title: "GST Number", Kind: KindText}},
		map[string]string{"GST": "req_gst_number"},
	)
	assert.Equal(t, "GST Number", r.Title("req_gst_number"))
	assert.Equal(t, "req_gst_number", r.BankColumn("gst"))
	assert.Equal(t, "address", r.BankColumn("address"))
}

func TestHumanizeColumn(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"req_business_address", "Business Address"},
		{"income_statement_net_income", "Income Statement Net Income"},
		{"bank-average-balance", "Bank Average Balance"},
		{"req_", "req_"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanizeColumn(tt.key))
		})
	}
}

func TestSourcedValue_Provenance(t *testing.T) {
	v := SourcedValue{
		Column:     "req_business_address",
		Value:      Text("1234 Jasper Ave"),
		SourceType: SourceOCR,
		SourceID:   "doc-7",
		Label:      "Void Cheque",
	}
	assert.Equal(t, Provenance{SourceType: SourceOCR, SourceID: "doc-7", Label: "Void Cheque"}, v.Provenance())
}
