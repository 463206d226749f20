package notionsync

import (
	"time"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

// Database property names.
const (
	PropDescription = "Description"
	PropDueDate     = "Due Date"
	PropAmount      = "Amount"
	PropKind        = "Type"
	PropStatus      = "Status"
	PropCategory    = "Category"
	PropRemoteID    = "Remote ID"
	PropPaidAt      = "Paid At"
	PropItems       = "Items"
)

// TransactionToNotionProperties converts a local transaction into page properties.
func TransactionToNotionProperties(tx *domain.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: richText(tx.Description),
		},
		PropDueDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: dateOnly(tx.DueDate)},
		},
		PropAmount: notionapi.NumberProperty{
			Number: amountFloat(tx.Amount),
		},
		PropKind: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Kind)},
		},
		PropRemoteID: notionapi.RichTextProperty{
			RichText: richText(tx.RemoteID),
		},
	}

	if tx.Status != "" {
		props[PropStatus] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Status},
		}
	}
	if tx.CategoryName != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.CategoryName},
		}
	}
	if tx.PaidAt != nil {
		d := notionapi.Date(*tx.PaidAt)
		props[PropPaidAt] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}
	if tx.Kind == domain.KindInvoice {
		props[PropItems] = notionapi.NumberProperty{Number: float64(len(tx.ItemIDs))}
	}

	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func dateOnly(t time.Time) *notionapi.Date {
	d := notionapi.Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
	return &d
}

// amountFloat returns 0 for amounts that are not decimals.
func amountFloat(amount string) float64 {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// extractRemoteID reads the Remote ID property of a page.
// Returns empty string if not found.
func extractRemoteID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropRemoteID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
