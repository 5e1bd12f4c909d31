package handler

import (
	"testing"

	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
)

func TestProductID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int64
		ok   bool
	}{
		{"add product 7, quantity 2", 7, true},
		{"item #12 please", 12, true},
		{"add #3", 3, true},
		{"product number 4", 4, true},
		{"cancel order #12", 0, false},
		{"add red shoes", 0, false},
	}
	for _, tc := range tests {
		got, ok := ProductID(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ProductID(%q) = (%d, %v), want (%d, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestOrderID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int64
		ok   bool
	}{
		{"cancel order 12", 12, true},
		{"cancel order #5", 5, true},
		{"cancel #9", 9, true},
		{"remove product 3", 0, false},
		{"cancel my order", 0, false},
	}
	for _, tc := range tests {
		got, ok := OrderID(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("OrderID(%q) = (%d, %v), want (%d, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestQuantity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"add product 7, quantity 2", 2, true},
		{"qty 4 of the mouse", 4, true},
		{"red shoes x2", 2, true},
		{"3 units of trail shoes", 3, true},
		{"add 5 mice", 5, true},
		{"remove one scarf", 1, true},
		{"add three scarves", 3, true},
		{"add the first one", 0, false},
		{"add that one", 0, false},
		{"add red shoes", 0, false},
	}
	for _, tc := range tests {
		got, ok := Quantity(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Quantity(%q) = (%d, %v), want (%d, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want Reference
		ok   bool
	}{
		{"add the first one", Reference{Position: 1}, true},
		{"the third please", Reference{Position: 3}, true},
		{"the 2nd one", Reference{Position: 2}, true},
		{"number 4", Reference{Position: 4}, true},
		{"the last one", Reference{Last: true}, true},
		{"add it", Reference{Pronoun: true}, true},
		{"add red shoes", Reference{}, false},
	}
	for _, tc := range tests {
		got, ok := ParseReference(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseReference(%q) = (%+v, %v), want (%+v, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestReferenceResolve(t *testing.T) {
	t.Parallel()

	three := &statex.Payload{Kind: statex.PayloadProducts, Items: []statex.Item{
		{Position: 1, ProductID: 10}, {Position: 2, ProductID: 20}, {Position: 3, ProductID: 30},
	}}
	one := &statex.Payload{Kind: statex.PayloadProducts, Items: []statex.Item{{Position: 1, ProductID: 99}}}

	if it, ok := (Reference{Position: 2}).Resolve(three); !ok || it.ProductID != 20 {
		t.Fatalf("position 2 = (%+v, %v)", it, ok)
	}
	if it, ok := (Reference{Last: true}).Resolve(three); !ok || it.ProductID != 30 {
		t.Fatalf("last = (%+v, %v)", it, ok)
	}
	if _, ok := (Reference{Position: 4}).Resolve(three); ok {
		t.Fatalf("position 4 resolved against 3 items")
	}
	if _, ok := (Reference{Pronoun: true}).Resolve(three); ok {
		t.Fatalf("pronoun resolved against 3 items")
	}
	if it, ok := (Reference{Pronoun: true}).Resolve(one); !ok || it.ProductID != 99 {
		t.Fatalf("pronoun on single item = (%+v, %v)", it, ok)
	}
	if _, ok := (Reference{Position: 1}).Resolve(nil); ok {
		t.Fatalf("resolved against nil payload")
	}
}

func TestBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int64
		ok   bool
	}{
		{"red shoes under $60", 6000, true},
		{"below 50", 5000, true},
		{"less than 50 dollars", 5000, true},
		{"max 19.99", 1999, true},
		{"red shoes", 0, false},
	}
	for _, tc := range tests {
		got, ok := Budget(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Budget(%q) = (%d, %v), want (%d, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSearchPhrase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"search for red shoes", "red shoes"},
		{"Show me red shoes under $60", "red shoes"},
		{"do you have a wireless mouse?", "wireless mouse"},
		{"add 2 trail shoes to my cart", "trail shoes"},
		{"add the first one", ""},
		{"remove the scarf", "scarf"},
	}
	for _, tc := range tests {
		if got := SearchPhrase(tc.text); got != tc.want {
			t.Fatalf("SearchPhrase(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
