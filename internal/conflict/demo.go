package conflict

import "github.com/sells-group/reconcile-cli/internal/model"

// DemoRecords returns a fixed input for exercising the staff UI without live data.
func DemoRecords() []model.SourcedValue {
	return []model.SourcedValue{
		{Column: "req_business_address", Value: model.Text("1234 Jasper Ave, Suite 900"), SourceType: model.SourceBanking, SourceID: "demo-bank-1", Label: "Bank Statement"},
		{Column: "req_business_address", Value: model.Text("1234 Jasper Avenue, Ste 900"), SourceType: model.SourceClient, SourceID: "demo-form-1", Label: "Client Application"},
		{Column: "income_statement_net_income", Value: model.Number(125000), SourceType: model.SourceOCR, SourceID: "demo-doc-is", Label: "Income Statement"},
		{Column: "income_statement_net_income", Value: model.Number(118000), SourceType: model.SourceOCR, SourceID: "demo-doc-fs", Label: "Financial Statements"},
		{Column: "req_business_legal_name", Value: model.Text("Northern Lights Trading Ltd."), SourceType: model.SourceClient, SourceID: "demo-form-1", Label: "Client Application"},
		{Column: "req_business_legal_name", Value: model.Text("NORTHERN LIGHTS TRADING LTD."), SourceType: model.SourceBanking, SourceID: "demo-bank-1", Label: "Bank Statement"},
		{Column: "req_amount_requested", Value: model.Number(250000), SourceType: model.SourceClient, SourceID: "demo-form-1", Label: "Client Application"},
	}
}
