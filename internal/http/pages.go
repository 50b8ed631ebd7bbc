package http

import (
	"finvault/internal/core"
)

const (
	loginPath   = "/"
	homePath    = "/dashboard/home"
	aboutPath   = "/dashboard/about"
	incomePath  = "/dashboard/add-income"
	expensePath = "/dashboard/add-expense"
	historyPath = "/dashboard/transaction-history"
	navPath     = "/dashboard/nav"
)

// recentLimit is how many transactions the home page lists.
const recentLimit = 5

type (
	page struct {
		Title   string
		Error   string
		Success string
		Shell   shell
	}

	shell struct {
		UserName  string
		Path      string
		Collapsed bool
		Nav       []navItem
	}

	navItem struct {
		Label  string
		Path   string
		Icon   string
		Active bool
	}

	loginPage struct {
		page
		Email string
	}

	registerPage struct {
		page
		Name        string
		Email       string
		MinPassword int
	}

	homePage struct {
		page
		HasSummary bool
		Income     string
		Expense    string
		Balance    string
		Count      int
		Recent     []transactionCard
	}

	transactionFormPage struct {
		page
		Kind        core.TransactionType
		KindTitle   string
		KindClass   string
		Action      string
		Currency    string
		MaxImageMB  int64
		Suggestions []string
		Form        core.TransactionForm
	}

	historyPage struct {
		page
		Cards []transactionCard
	}

	transactionCard struct {
		ID        int64
		Type      string
		TypeClass string
		Avatar    string
		ImageSrc  string
		Amount    string
		Category  string
		Date      string
		Note      string
	}
)

var navLayout = []navItem{
	{Label: "Dashboard", Path: homePath, Icon: "⌂"},
	{Label: "Add Income", Path: incomePath, Icon: "+"},
	{Label: "Add Expense", Path: expensePath, Icon: "−"},
	{Label: "Transaction History", Path: historyPath, Icon: "☰"},
	{Label: "About", Path: aboutPath, Icon: "i"},
}

func navFor(path string) []navItem {
	items := make([]navItem, len(navLayout))
	for i, item := range navLayout {
		item.Active = item.Path == path
		items[i] = item
	}
	return items
}

var categorySuggestions = map[core.TransactionType][]string{
	core.Income:  {"Salary", "Freelance", "Investments", "Gift", "Other"},
	core.Expense: {"Food", "Rent", "Transport", "Utilities", "Shopping", "Health", "Entertainment", "Other"},
}

func newTransactionCard(t core.Transaction, imageBase string) transactionCard {
	note := t.Note
	if note == "" {
		note = "-"
	}
	return transactionCard{
		ID:        t.ID,
		Type:      string(t.Type),
		TypeClass: t.Type.Label(),
		Avatar:    t.AvatarLabel(),
		ImageSrc:  t.ImageSource(imageBase),
		Amount:    core.FormatAmount(t.Amount),
		Category:  t.Category,
		Date:      t.Date,
		Note:      note,
	}
}

func newTransactionCards(txns []core.Transaction, imageBase string) []transactionCard {
	cards := make([]transactionCard, 0, len(txns))
	for _, t := range txns {
		cards = append(cards, newTransactionCard(t, imageBase))
	}
	return cards
}
