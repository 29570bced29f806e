package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"crm-backoffice/internal/models"
)

const invoiceSheet = "Invoices"

var invoiceHeadings = []any{
	"Invoice No", "Customer ID", "Type", "Status", "Invoice Date", "Due Date",
	"Percentage", "Subtotal", "DPP", "Tax Amount", "Stamp Duty", "Grand Total",
}

// WriteInvoices renders invoices as a single-sheet workbook.
func WriteInvoices(w io.Writer, invoices []*models.Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), invoiceSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(invoiceSheet, "A1", &invoiceHeadings); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(invoiceSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, inv := range invoices {
		dueDate := ""
		if inv.DueDate != nil {
			dueDate = inv.DueDate.Format("2006-01-02")
		}
		row := []any{
			inv.InvoiceNo,
			inv.CustomerID,
			string(inv.Type),
			string(inv.Status),
			inv.InvoiceDate.Format("2006-01-02"),
			dueDate,
			inv.Percentage.InexactFloat64(),
			inv.Subtotal.InexactFloat64(),
			inv.DPP.InexactFloat64(),
			inv.TaxAmount.InexactFloat64(),
			inv.StampDuty.InexactFloat64(),
			inv.GrandTotal.InexactFloat64(),
		}
		if err := f.SetSheetRow(invoiceSheet, "A"+fmt.Sprint(i+2), &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(invoiceSheet, "A", "L", 16); err != nil {
		return err
	}
	return f.Write(w)
}
