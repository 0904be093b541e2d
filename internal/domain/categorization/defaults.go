package categorization

// Seeded category names.
const (
	CategoryNeedsReview    = "Needs Review"
	CategoryIncome         = "Income"
	CategoryGroceries      = "Groceries"
	CategoryDining         = "Dining"
	CategoryTransportation = "Transportation"
	CategoryUtilities      = "Utilities"
	CategoryShopping       = "Shopping"
	CategoryEntertainment  = "Entertainment"
	CategoryTransfers      = "Transfers"
	CategoryFees           = "Fees"
	CategoryHousing        = "Housing"
	CategoryHealth         = "Health"
)

var defaultPatterns = map[string][]string{
	CategoryIncome:         {"PAYROLL", "DIRECT DEP", "SALARY", "INTEREST PAID", "INTEREST EARNED", "DIVIDEND", "TAX REFUND"},
	CategoryGroceries:      {"WHOLE FOODS", "WHOLEFDS", "TRADER JOE", "SAFEWAY", "KROGER", "ALDI", "PUBLIX", "WEGMANS", "SHOPRITE"},
	CategoryDining:         {"STARBUCKS", "MCDONALD", "CHIPOTLE", "DOORDASH", "GRUBHUB", "UBER EATS", "DUNKIN", "RESTAURANT", "COFFEE"},
	CategoryTransportation: {"UBER", "LYFT", "SHELL", "EXXON", "CHEVRON", "SUNOCO", "E-ZPASS", "PARKING"},
	CategoryUtilities:      {"COMCAST", "XFINITY", "VERIZON", "AT&T", "T-MOBILE", "CON EDISON", "PSE&G", "ELECTRIC", "WATER BILL"},
	CategoryShopping:       {"AMAZON", "AMZN", "TARGET", "WALMART", "COSTCO", "BEST BUY", "HOME DEPOT", "EBAY"},
	CategoryEntertainment:  {"NETFLIX", "SPOTIFY", "HULU", "DISNEY PLUS", "HBO MAX", "STEAM", "AMC THEATRES"},
	CategoryTransfers:      {"TRANSFER", "ZELLE", "VENMO", "PAYPAL", "AUTOPAY", "PAYMENT THANK YOU", "ONLINE PAYMENT"},
	CategoryFees:           {"SERVICE CHARGE", "MAINTENANCE FEE", "OVERDRAFT", "LATE FEE", "INTEREST CHARGE", "ANNUAL FEE", "ATM FEE"},
	CategoryHousing:        {"RENT", "MORTGAGE", "HOA"},
	CategoryHealth:         {"PHARMACY", "CVS", "WALGREENS", "DENTAL", "MEDICAL"},
}

// DefaultMerchants returns the built-in patterns.
func DefaultMerchants() []Merchant {
	var merchants []Merchant
	for category, patterns := range defaultPatterns {
		for _, p := range patterns {
			merchants = append(merchants, Merchant{RawPattern: p, CleanName: toTitleCase(p), Category: category})
		}
	}
	return merchants
}
