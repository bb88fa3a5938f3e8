package catalog

import (
	"math/rand"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Topscore  10KG ", "topscore 10 kg"},
		{"topscore 10 kg", "topscore 10 kg"},
		{"Topscore 10 Kg", "topscore 10 kg"},
		{"Kellogg's Corn Flakes (500g)", "kelloggs corn flakes 500 g"},
		{"Kellogg’s Corn Flakes 500G", "kelloggs corn flakes 500 g"},
		{"Coca-Cola 1.5L", "coca-cola 1.5 l"},
		{"Milk -- 2 Litres", "milk 2 l"},
		{"Sugar 1,000g", "sugar 1000 g"},
		{"Oil 1,5 L", "oil 1.5 l"},
		{"Coke 6x330ml", "coke 6 x 330 ml"},
		{"Coke 6 × 330 ML", "coke 6 x 330 ml"},
		{"ＯＭＯ　２ｋｇ", "omo 2 kg"},
		{"Rice — Pishori, 5 KGS", "rice pishori 5 kg"},
		{"Brown Bread 400 Grams.", "brown bread 400 g"},
		{"Eggs [Tray of 30 pieces]", "eggs tray of 30 pcs"},
		{"M&M's Peanut", "m&ms peanut"},
		{"Soda 2x×1L", "soda 2 x 1 l"},
		{"Water 6×x500ml", "water 6 x 500 ml"},
		{"Milk 1½ L", "milk 1.5 l"},
		{"Milk 1 ½L", "milk 1.5 l"},
		{"Milk 11 2L", "milk 11 2 l"},
		{"Pizza ½ price", "pizza 0.5 price"},
		{"Cake 2⅓kg", "cake 2 1/3 kg"},
		{"Yoghurt 10gé", "yoghurt 10gé"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"  Topscore  10KG ",
		"Kellogg's Corn Flakes (500g)",
		"Coca-Cola 1.5L",
		"Coke 6 × 330 ML",
		"Sugar 1,000,000g",
		"a--b -c d- .5 5. 1.2.3",
		"Crème Brûlée 200G",
		"500g-pack of 3x2kg",
		"ＯＭＯ　２ｋｇ",
		"Price: 45% off!! (limited)",
		"x 5 x",
		"Soda 2x×1L",
		"Water 6×x500ml",
		"Milk 1½ L",
		"Cake 2⅓kg",
		"1,50,3 x×x 2",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeUnitVariantsConverge(t *testing.T) {
	variants := []string{"Flour 2kg", "FLOUR 2 KG", "flour 2 kgs", "Flour 2 Kilograms", "flour   2kilo"}
	want := Normalize(variants[0])
	for _, v := range variants[1:] {
		if got := Normalize(v); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestNormalizeIdempotentOnRandomInput(t *testing.T) {
	pieces := []string{
		"a", "B", "x", "X", "×", "0", "1", "7", " ", "  ", ",", ".", "-", "—", "'", "/",
		"½", "⅓", "¾", "kg", "G", "ml", "L", "pcs", "é", "(", ")", "ｋ", "２", "%", "&",
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		var b strings.Builder
		for n := 1 + rng.Intn(12); n > 0; n-- {
			b.WriteString(pieces[rng.Intn(len(pieces))])
		}
		in := b.String()
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
