package printing

// defaultInvoiceTemplate prints invoices and debit notes. It is executed with
// an invoiceView.
const defaultInvoiceTemplate = `<!DOCTYPE html>
<html lang="es-AR">
<head>
<meta charset="UTF-8">
<title>{{docType .Tx.Type}} {{.Tx.Number}}</title>
<style>
  body { font-family: "DejaVu Sans", Arial, sans-serif; font-size: 11px; color: #222; }
  h1 { font-size: 18px; margin: 0 0 4px 0; }
  .header { display: flex; justify-content: space-between; border-bottom: 2px solid #222; padding-bottom: 8px; }
  .meta td { padding: 1px 8px 1px 0; }
  .client { margin: 12px 0; }
  table.items { width: 100%; border-collapse: collapse; margin-top: 8px; }
  table.items th { text-align: left; border-bottom: 1px solid #999; padding: 4px; }
  table.items td { padding: 4px; border-bottom: 1px solid #eee; }
  .num { text-align: right; }
  .totals { margin-top: 12px; width: 40%; margin-left: auto; }
  .totals td { padding: 2px 4px; }
  .grand { font-weight: bold; font-size: 13px; border-top: 1px solid #222; }
  .status { display: inline-block; padding: 2px 6px; border: 1px solid #222; }
  .cancelled { color: #b00; border-color: #b00; }
</style>
</head>
<body>
<div class="header">
  <div>
    <h1>{{docType .Tx.Type}}</h1>
    <table class="meta">
      <tr><td>Número</td><td>{{.Tx.Number}}</td></tr>
      <tr><td>Fecha</td><td>{{date .Tx.TransactionDate}}</td></tr>
      {{- if .Tx.DueDate}}
      <tr><td>Vencimiento</td><td>{{date .Tx.DueDate}}</td></tr>
      {{- end}}
      <tr><td>Forma de pago</td><td>{{paymentMethod .Tx.PaymentMethod}}</td></tr>
    </table>
  </div>
  <div>
    <span class="status{{if .Tx.IsCancelled}} cancelled{{end}}">{{statusText .Tx.PaymentStatus}}</span>
    {{- if .Overdue}} <span class="status cancelled">Vencida</span>{{end}}
  </div>
</div>

<div class="client">
  <strong>{{title .Client.FullName}}</strong><br>
  {{- if .Client.TaxID}}CUIT/DNI: {{.Client.TaxID}}<br>{{end}}
  Tel.: {{.Client.Phone.InternationalFormat}}<br>
  {{- if .Client.Email}}{{.Client.Email}}<br>{{end}}
  {{- if not .Client.Address.IsEmpty}}{{.Client.Address.FullAddress}}{{end}}
</div>

{{- if .Tx.Items}}
<table class="items">
  <thead>
    <tr><th>Descripción</th><th class="num">Cant.</th><th class="num">P. unitario</th><th class="num">Importe</th></tr>
  </thead>
  <tbody>
  {{- range .Tx.Items}}
    <tr><td>{{.Name}}</td><td class="num">{{.Quantity}}</td><td class="num">{{money .UnitPrice}}</td><td class="num">{{money .Total}}</td></tr>
  {{- end}}
  </tbody>
</table>
{{- else if .Tx.Description}}
<p>{{.Tx.Description}}</p>
{{- end}}

<table class="totals">
  <tr><td>Subtotal</td><td class="num">{{money .Tx.Amount}}</td></tr>
  {{- if .HasTax}}
  <tr><td>Impuestos</td><td class="num">{{money .Tx.TaxAmount}}</td></tr>
  {{- end}}
  {{- if .HasDiscount}}
  <tr><td>Descuento</td><td class="num">-{{money .Tx.DiscountAmount}}</td></tr>
  {{- end}}
  <tr class="grand"><td>Total</td><td class="num">{{money .Tx.TotalAmount}}</td></tr>
  <tr><td>Saldo de cuenta</td><td class="num">{{money .Tx.BalanceAfter}}</td></tr>
</table>
</body>
</html>`

// invoiceFooterTemplate is printed by Chrome on every page
const invoiceFooterTemplate = `<div style="font-size:8px;width:100%;text-align:center;color:#666;">
<span class="title"></span> · Página <span class="pageNumber"></span> de <span class="totalPages"></span></div>`
