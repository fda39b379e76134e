package accounts

// Circular200 returns the starter chart used to seed a new tenant. It follows
// the Vietnamese Circular 200 numbering and contains every account the
// auto-posting generators reference. Parents precede their children, so the
// result can be passed to Upsert directly.
func Circular200() []CreateInput {
	type row struct {
		code, name, parent string
		typ                AccountType
		summary            bool
	}
	rows := []row{
		{code: "111", name: "Tiền mặt", typ: AccountTypeAsset},
		{code: "112", name: "Tiền gửi ngân hàng", typ: AccountTypeAsset},
		{code: "131", name: "Phải thu của khách hàng", typ: AccountTypeAsset},
		{code: "133", name: "Thuế GTGT được khấu trừ", typ: AccountTypeAsset, summary: true},
		{code: "1331", name: "Thuế GTGT được khấu trừ của hàng hóa, dịch vụ", parent: "133", typ: AccountTypeAsset},
		{code: "138", name: "Phải thu khác", typ: AccountTypeAsset, summary: true},
		{code: "1381", name: "Tài sản thiếu chờ xử lý", parent: "138", typ: AccountTypeAsset},
		{code: "1388", name: "Phải thu khác", parent: "138", typ: AccountTypeAsset},
		{code: "141", name: "Tạm ứng", typ: AccountTypeAsset},
		{code: "152", name: "Nguyên liệu, vật liệu", typ: AccountTypeAsset},
		{code: "153", name: "Công cụ, dụng cụ", typ: AccountTypeAsset},
		{code: "156", name: "Hàng hóa", typ: AccountTypeAsset},
		{code: "211", name: "Tài sản cố định hữu hình", typ: AccountTypeAsset},
		{code: "214", name: "Hao mòn tài sản cố định", typ: AccountTypeAsset},
		{code: "331", name: "Phải trả cho người bán", typ: AccountTypeLiability},
		{code: "333", name: "Thuế và các khoản phải nộp Nhà nước", typ: AccountTypeLiability, summary: true},
		{code: "3331", name: "Thuế giá trị gia tăng phải nộp", parent: "333", typ: AccountTypeLiability},
		{code: "3334", name: "Thuế thu nhập doanh nghiệp", parent: "333", typ: AccountTypeLiability},
		{code: "334", name: "Phải trả người lao động", typ: AccountTypeLiability},
		{code: "338", name: "Phải trả, phải nộp khác", typ: AccountTypeLiability, summary: true},
		{code: "3381", name: "Tài sản thừa chờ giải quyết", parent: "338", typ: AccountTypeLiability},
		{code: "3388", name: "Phải trả, phải nộp khác", parent: "338", typ: AccountTypeLiability},
		{code: "341", name: "Vay và nợ thuê tài chính", typ: AccountTypeLiability},
		{code: "411", name: "Vốn đầu tư của chủ sở hữu", typ: AccountTypeEquity},
		{code: "421", name: "Lợi nhuận sau thuế chưa phân phối", typ: AccountTypeEquity},
		{code: "511", name: "Doanh thu bán hàng và cung cấp dịch vụ", typ: AccountTypeRevenue},
		{code: "515", name: "Doanh thu hoạt động tài chính", typ: AccountTypeRevenue},
		{code: "521", name: "Các khoản giảm trừ doanh thu", typ: AccountTypeRevenue},
		{code: "632", name: "Giá vốn hàng bán", typ: AccountTypeExpense},
		{code: "635", name: "Chi phí tài chính", typ: AccountTypeExpense},
		{code: "641", name: "Chi phí bán hàng", typ: AccountTypeExpense},
		{code: "642", name: "Chi phí quản lý doanh nghiệp", typ: AccountTypeExpense},
		{code: "711", name: "Thu nhập khác", typ: AccountTypeRevenue},
		{code: "811", name: "Chi phí khác", typ: AccountTypeExpense},
		{code: "821", name: "Chi phí thuế thu nhập doanh nghiệp", typ: AccountTypeExpense},
	}
	out := make([]CreateInput, 0, len(rows))
	for _, r := range rows {
		in := CreateInput{Code: r.code, Name: r.name, Type: r.typ, IsDetail: !r.summary}
		if r.parent != "" {
			parent := r.parent
			in.ParentCode = &parent
		}
		out = append(out, in)
	}
	return out
}
