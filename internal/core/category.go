package core

// Category is one entry of the fixed category catalog.
type Category struct {
	Key   string
	Label string
	Icon  string
}

var catalog = map[TxType][]Category{
	Expense: {
		{Key: "food", Label: "Groceries", Icon: "🍔"},
		{Key: "transport", Label: "Transport", Icon: "🚗"},
		{Key: "entertainment", Label: "Entertainment", Icon: "🎮"},
		{Key: "health", Label: "Health", Icon: "💊"},
		{Key: "shopping", Label: "Shopping", Icon: "🛍️"},
		{Key: "utilities", Label: "Utilities", Icon: "💡"},
		{Key: "other_expense", Label: "Other", Icon: "📦"},
	},
	Income: {
		{Key: "salary", Label: "Salary", Icon: "💰"},
		{Key: "freelance", Label: "Freelance", Icon: "💻"},
		{Key: "investment", Label: "Investments", Icon: "📈"},
		{Key: "gift", Label: "Gift", Icon: "🎁"},
		{Key: "other_income", Label: "Other", Icon: "💵"},
	},
}

// Categories returns the ordered categories of a type.
func Categories(t TxType) []Category {
	return append([]Category(nil), catalog[t]...)
}

func HasCategory(t TxType, key string) bool {
	_, ok := lookupCategory(t, key)
	return ok
}

// CategoryLabel returns "icon label" for a known key, otherwise fallback,
// otherwise the key itself.
func CategoryLabel(t TxType, key, fallback string) string {
	if c, ok := lookupCategory(t, key); ok {
		return c.Icon + " " + c.Label
	}
	if fallback != "" {
		return fallback
	}
	return key
}

func lookupCategory(t TxType, key string) (Category, bool) {
	for _, c := range catalog[t] {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}
