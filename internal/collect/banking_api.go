package collect

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/pkg/banking"
)

// BankingAPI reads bank statement fields from the statement parsing service
// instead of the database.
type BankingAPI struct {
	client  banking.Client
	columns *model.ColumnRegistry
}

// NewBankingAPI wraps a banking client. A nil registry uses the default
// bank field mapping.
func NewBankingAPI(client banking.Client, reg *model.ColumnRegistry) *BankingAPI {
	if reg == nil {
		reg = model.DefaultRegistry()
	}
	return &BankingAPI{client: client, columns: reg}
}

// BankingFields flattens every statement into one value per header field.
func (b *BankingAPI) BankingFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error) {
	stmts, err := b.client.Statements(ctx, applicationID)
	if err != nil {
		return nil, eris.Wrap(err, "collect: banking api")
	}

	var out []model.SourcedValue
	for _, st := range stmts {
		for _, f := range st.Fields {
			out = append(out, model.SourcedValue{
				Column:     b.columns.BankColumn(f.Name),
				Value:      model.ValueOf(f.Value),
				SourceType: model.SourceBanking,
				SourceID:   st.ID,
				Label:      "Bank Statement",
				ObservedAt: st.ParsedAt,
			})
		}
	}
	return out, nil
}
