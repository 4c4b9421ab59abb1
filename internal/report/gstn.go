package report

// GSTN portal JSON layouts. Field names follow the portal's offline tool.

type gstnB2CS struct {
	SupplyType string `json:"sply_ty"`
	POS        string `json:"pos"`
	Type       string `json:"typ"`
	Rate       Money  `json:"rt"`
	Taxable    Money  `json:"txval"`
	CGST       Money  `json:"camt"`
	SGST       Money  `json:"samt"`
	Cess       Money  `json:"csamt"`
}

type gstnHSNRow struct {
	Num         int    `json:"num"`
	Code        string `json:"hsn_sc"`
	Description string `json:"desc"`
	UQC         string `json:"uqc"`
	Quantity    int64  `json:"qty"`
	Value       Money  `json:"val"`
	Taxable     Money  `json:"txval"`
	CGST        Money  `json:"camt"`
	SGST        Money  `json:"samt"`
	Cess        Money  `json:"csamt"`
}

type gstnHSN struct {
	Data []gstnHSNRow `json:"data"`
}

type gstnGSTR1 struct {
	GSTIN  string     `json:"gstin"`
	Period string     `json:"fp"`
	B2CS   []gstnB2CS `json:"b2cs"`
	HSN    gstnHSN    `json:"hsn"`
}

type gstnItemDetail struct {
	Taxable Money `json:"txval"`
	CGST    Money `json:"camt"`
	SGST    Money `json:"samt"`
}

type gstnItem struct {
	Num    int            `json:"num"`
	Detail gstnItemDetail `json:"itm_det"`
}

type gstnInvoice struct {
	Number string     `json:"inum"`
	Date   string     `json:"idt"`
	Value  Money      `json:"val"`
	Items  []gstnItem `json:"itms"`
}

type gstnSupplier struct {
	CTIN     string        `json:"ctin"`
	Name     string        `json:"trdnm"`
	Invoices []gstnInvoice `json:"inv"`
}

type gstnGSTR2 struct {
	GSTIN  string         `json:"gstin"`
	Period string         `json:"fp"`
	B2B    []gstnSupplier `json:"b2b"`
	ITC    Money          `json:"itc_total"`
}

type gstnTax struct {
	CGST Money `json:"camt"`
	SGST Money `json:"samt"`
}

type gstnOutward struct {
	Taxable Money `json:"txval"`
	CGST    Money `json:"camt"`
	SGST    Money `json:"samt"`
}

type gstnSupDetails struct {
	Outward gstnOutward `json:"osup_det"`
}

type gstnITC struct {
	Net gstnTax `json:"itc_net"`
}

type gstnNetTax struct {
	CGST  Money `json:"camt"`
	SGST  Money `json:"samt"`
	Total Money `json:"total"`
}

type gstnGSTR3B struct {
	GSTIN      string         `json:"gstin"`
	Period     string         `json:"ret_period"`
	SupDetails gstnSupDetails `json:"sup_details"`
	ITC        gstnITC        `json:"itc_elg"`
	NetTax     gstnNetTax     `json:"net_tax"`
}

// filingPeriod returns MMYYYY for a YYYY-MM-DD date, or "" when malformed.
func filingPeriod(date string) string {
	if len(date) < 7 || date[4] != '-' {
		return ""
	}
	return date[5:7] + date[0:4]
}

func (r GSTR1) gstn() any {
	b, h := r.B2CS, r.HSN
	return gstnGSTR1{
		GSTIN:  r.Settings.GSTIN,
		Period: filingPeriod(r.Period.From),
		B2CS: []gstnB2CS{{
			SupplyType: "INTRA",
			POS:        r.Settings.stateCode(),
			Type:       b.Type,
			Rate:       b.Rate,
			Taxable:    b.TaxableValue,
			CGST:       b.CGST,
			SGST:       b.SGST,
			Cess:       b.Cess,
		}},
		HSN: gstnHSN{Data: []gstnHSNRow{{
			Num:         1,
			Code:        h.Code,
			Description: h.Description,
			UQC:         h.UQC,
			Quantity:    h.TotalQuantity,
			Value:       h.TotalValue,
			Taxable:     h.TaxableValue,
			CGST:        h.CGST,
			SGST:        h.SGST,
			Cess:        h.Cess,
		}}},
	}
}

func (r GSTR2) gstn() any {
	doc := gstnGSTR2{
		GSTIN:  r.Settings.GSTIN,
		Period: filingPeriod(r.Period.From),
		B2B:    []gstnSupplier{},
		ITC:    r.TotalInputTaxCredit,
	}
	for _, p := range r.Purchases {
		value := M(p.TaxableValue.Add(p.CGST.Decimal).Add(p.SGST.Decimal))
		doc.B2B = append(doc.B2B, gstnSupplier{
			CTIN: p.SupplierGSTIN,
			Name: p.SupplierName,
			Invoices: []gstnInvoice{{
				Number: p.InvoiceNumber,
				Date:   p.InvoiceDate,
				Value:  value,
				Items: []gstnItem{{
					Num:    1,
					Detail: gstnItemDetail{Taxable: p.TaxableValue, CGST: p.CGST, SGST: p.SGST},
				}},
			}},
		})
	}
	return doc
}

func (r GSTR3B) gstn() any {
	return gstnGSTR3B{
		GSTIN:  r.Settings.GSTIN,
		Period: filingPeriod(r.Period.From),
		SupDetails: gstnSupDetails{Outward: gstnOutward{
			Taxable: r.TaxableValue,
			CGST:    r.Output.CGST,
			SGST:    r.Output.SGST,
		}},
		ITC:    gstnITC{Net: gstnTax{CGST: r.InputCredit.CGST, SGST: r.InputCredit.SGST}},
		NetTax: gstnNetTax{CGST: r.NetPayable.CGST, SGST: r.NetPayable.SGST, Total: r.NetPayable.Total},
	}
}
