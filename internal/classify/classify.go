// Package classify derives transaction semantics (type, category, cleaned
// description, counterparty) from the free-text description of a statement
// row. It is a pure rule engine: classifying the same input twice always
// yields the same result.
package classify

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fireflybt/fireflybt/internal/model"
)

// UnknownCounterparty is the placeholder when no counterparty can be derived.
const UnknownCounterparty = "Unknown"

// internalTransferMarker is the phrase BT puts on transfers between own accounts.
const internalTransferMarker = "Transfer intern - canal electronic"

var (
	// counterpartyPattern captures the merchant name that follows a card
	// terminal id, up to the double-space padding BT inserts.
	counterpartyPattern = regexp.MustCompile(`TID:?[\d\w]+ (.+)\s{2}`)

	// cardTransferPattern captures the sender of an incoming card transfer.
	cardTransferPattern = regexp.MustCompile(`Transfer din card \d+ (.+) catre`)
)

// Amount thresholds used by the refinement rules.
var (
	// groceriesThreshold: delivery-app orders above this are groceries, not food.
	groceriesThreshold = decimal.NewFromInt(150)
	// scooterThreshold: Bolt rides below this are scooter rentals.
	scooterThreshold = decimal.NewFromInt(13)
)

// Classification is the derived semantic metadata for one row.
type Classification struct {
	Type         model.TransactionType
	Category     string
	Description  string
	Counterparty string
}

// CategoryRule maps known merchant substrings to a category. Rules are
// evaluated in table order and the first substring found wins; Refine then
// adjusts description and counterparty for that category.
type CategoryRule struct {
	Category   string
	Substrings []string
	Refine     func(c *Classification, matched string, debit decimal.Decimal)
}

// Rules is the static category table. Order matters.
var Rules = []CategoryRule{
	{
		Category:   "Food",
		Substrings: []string{"PayUtazz.ro", "GLOVO", "Glovo", "KFC KIOSC"},
		Refine:     refineFood,
	},
	{
		Category:   "Transport",
		Substrings: []string{"BOLT.EU", "UBER TRIP", "OMV", "EPinterregional.ro"},
		Refine:     refineTransport,
	},
	{
		Category:   "Groceries",
		Substrings: []string{"MEGAIMAGE", "GUSTINO", "LIDL", "SELGROS", "KAUFLAND"},
		Refine:     refineGroceries,
	},
	{
		Category:   "Going out",
		Substrings: []string{"COPACUL DE CAFEA", "BUSINESS BISTRO CAFE"},
		Refine:     refineGoingOut,
	},
	{
		Category:   "Cheltuieli",
		Substrings: []string{"NETFLIX.COM", "SPLITWISE", "RCS AND RDS", "Amazon Video", "WWW.ORANGE.RO"},
	},
}

// InferType decides the money-flow direction of a row. The deposit check
// runs before the internal-transfer check: a credited row is a deposit even
// when the transfer phrase appears in its description.
func InferType(description string, debit, credit decimal.Decimal) model.TransactionType {
	if !credit.IsZero() && debit.IsZero() {
		return model.TypeDeposit
	}
	if strings.Contains(description, internalTransferMarker) {
		return model.TypeTransfer
	}
	return model.TypeWithdrawal
}

// Classify derives type, category, description and counterparty for one row.
func Classify(description string, debit, credit decimal.Decimal) Classification {
	c := Classification{
		Type:         InferType(description, debit, credit),
		Counterparty: UnknownCounterparty,
	}

	if m := counterpartyPattern.FindStringSubmatch(description); m != nil {
		c.Counterparty = m[1]
	}

	var matched string
	var matchedRule CategoryRule
	for _, rule := range Rules {
		for _, sub := range rule.Substrings {
			if strings.Contains(description, sub) {
				c.Category = rule.Category
				c.Counterparty = capitalize(sub)
				matched = sub
				matchedRule = rule
				break
			}
		}
		if matched != "" {
			break
		}
	}

	if matched != "" && matchedRule.Refine != nil {
		matchedRule.Refine(&c, matched, debit)
	}

	if c.Category == "" {
		if m := cardTransferPattern.FindStringSubmatch(description); m != nil {
			sender := titleCase(m[1])
			c.Description = "Transfer " + sender
			c.Counterparty = sender
		}
	}

	if c.Description == "" && c.Counterparty != UnknownCounterparty {
		c.Description = "Plata " + c.Counterparty
	}

	return c
}

// AssignAccounts places the statement's own account on the side money flows
// out of (source for withdrawals and transfers, destination for deposits)
// and the counterparty on the opposite side.
func AssignAccounts(typ model.TransactionType, ownAccount, counterparty string) (source, destination string) {
	if typ == model.TypeDeposit {
		return counterparty, ownAccount
	}
	return ownAccount, counterparty
}

// refineFood upgrades large delivery-app orders to groceries and labels the
// rest as ordered food. Tazz hides behind a payment-processor name.
func refineFood(c *Classification, matched string, debit decimal.Decimal) {
	m := strings.ToLower(matched)

	if debit.GreaterThan(groceriesThreshold) && (strings.Contains(m, "tazz") || strings.Contains(m, "glovo")) {
		c.Category = "Groceries"
	} else {
		c.Description = "Mancare comandata"
	}

	if strings.Contains(m, "tazz") {
		c.Counterparty = "Tazz"
	}

	if c.Category == "Groceries" {
		c.Description = c.Counterparty + " cumparaturi"
	}
}

func refineGroceries(c *Classification, _ string, _ decimal.Decimal) {
	c.Description = c.Counterparty + " cumparaturi"
}

// refineTransport normalizes ride-hailing brands. The raw merchant string
// stays as the description unless the amount marks a scooter rental.
func refineTransport(c *Classification, matched string, debit decimal.Decimal) {
	c.Description = c.Counterparty
	m := strings.ToLower(matched)

	if strings.Contains(m, "bolt") {
		c.Counterparty = "Bolt"
		if debit.LessThan(scooterThreshold) {
			c.Description = "Bolt scooter"
		}
	}

	if strings.Contains(m, "uber") {
		c.Counterparty = "Uber"
	}
}

func refineGoingOut(c *Classification, _ string, _ decimal.Decimal) {
	c.Description = "Iesire"
}

// capitalize lowercases s and uppercases its first letter.
func capitalize(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// titleCase capitalizes each space-separated word of s.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
