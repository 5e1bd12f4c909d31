package tool

import (
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
)

var descriptors = map[Name]*schema.ToolInfo{
	SearchCatalog: {
		Name: string(SearchCatalog),
		Desc: "Search the product catalog by keywords, optionally under a maximum price.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query":           {Type: schema.String, Desc: "Product keywords", Required: true},
			"max_price_cents": {Type: schema.Integer, Desc: "Upper price bound in cents"},
		}),
	},
	AddCartLine: {
		Name: string(AddCartLine),
		Desc: "Add a quantity of a product to the shopper's cart.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_id": {Type: schema.Integer, Desc: "Catalog product id", Required: true},
			"quantity":   {Type: schema.Integer, Desc: "Units to add (1-99)", Required: true},
		}),
	},
	RemoveCartLine: {
		Name: string(RemoveCartLine),
		Desc: "Remove a quantity of a product from the cart; the line is deleted at zero.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_id": {Type: schema.Integer, Desc: "Catalog product id", Required: true},
			"quantity":   {Type: schema.Integer, Desc: "Units to remove (1-99)"},
			"all":        {Type: schema.Boolean, Desc: "Remove the whole line instead of a quantity"},
		}),
	},
	GetCart: {
		Name: string(GetCart),
		Desc: "Show the cart lines with prices and the subtotal.",
	},
	PlaceOrder: {
		Name: string(PlaceOrder),
		Desc: "Turn the whole cart into an order if every line is in stock.",
	},
	ListOrders: {
		Name: string(ListOrders),
		Desc: "List the shopper's orders with their status, newest first.",
	},
	CancelOrder: {
		Name: string(CancelOrder),
		Desc: "Cancel an order that has not been delivered and restock its items.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"order_id": {Type: schema.Integer, Desc: "Order id", Required: true},
		}),
	},
}

// Infos returns descriptors for the named tools in the given order. Unknown
// names are skipped.
func Infos(names ...Name) []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(names))
	for _, n := range names {
		if info, ok := descriptors[n]; ok {
			out = append(out, info)
		}
	}
	return out
}

// ForTask is the allowlist of tools a task handler may call.
func ForTask(task contractx.TaskType) []Name {
	switch task {
	case contractx.TaskCatalogSearch:
		return []Name{SearchCatalog}
	case contractx.TaskCart:
		return []Name{AddCartLine, RemoveCartLine, GetCart, SearchCatalog}
	case contractx.TaskOrder:
		return []Name{PlaceOrder, ListOrders, CancelOrder, GetCart}
	default:
		return nil
	}
}
