package catalog

import "testing"

func TestRegexMetaExtractor(t *testing.T) {
	cases := []struct {
		in    string
		brand string
		size  string
	}{
		{in: "Topscore Maize Flour 2KG", brand: "Topscore", size: "2kg"},
		{in: "maize flour 2 kg", size: "2kg"},
		{in: "Omo Washing Powder", brand: "Omo"},
		{in: "500g Sugar", size: "500g"},
		{in: "Coke 330ml x6", brand: "Coke", size: "330ml"},
		{in: "Fanta ×6", brand: "Fanta", size: "x6"},
		{in: "Coke 6x500ml", brand: "Coke", size: "500ml"},
		{in: "Max 2 Bars", brand: "Max"},
		{in: "1.5L Coca-Cola", size: "1.5l"},
		{in: "Oil 1,5 L", brand: "Oil", size: "1.5l"},
		{in: "Lait 10gé", brand: "Lait"},
		{in: "Coke 330ml, cold", brand: "Coke", size: "330ml"},
		{in: ""},
	}

	ex := RegexMetaExtractor{}
	for _, tc := range cases {
		got := ex.Extract(tc.in)
		if deref(got.Brand) != tc.brand {
			t.Errorf("Extract(%q).Brand = %q, want %q", tc.in, deref(got.Brand), tc.brand)
		}
		if deref(got.Size) != tc.size {
			t.Errorf("Extract(%q).Size = %q, want %q", tc.in, deref(got.Size), tc.size)
		}
		if tc.brand == "" && got.Brand != nil {
			t.Errorf("Extract(%q).Brand should be nil", tc.in)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
