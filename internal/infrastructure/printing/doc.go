// Package printing renders client account documents to PDF.
//
// An html/template produces the invoice markup and headless Chrome, driven
// through chromedp, prints it. InvoicePDFRenderer ties the two together for
// the billing application:
//
//	pdf, err := printing.NewChromedpRenderer(cfg.Chrome, logger)
//	if err != nil {
//	    return err
//	}
//	defer pdf.Close()
//	invoices := printing.NewInvoicePDFRenderer(pdf, logger)
package printing
