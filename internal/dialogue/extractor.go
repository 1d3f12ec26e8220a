package dialogue

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	bedroomsRE  = regexp.MustCompile(`(\d+)\s*(?:bed|br\b)`)
	bathroomsRE = regexp.MustCompile(`(\d+)\s*bath`)

	// currency prefixes are consumed but never read as the thousand marker
	budgetRangeRE  = regexp.MustCompile(`(?:ksh|kes|sh)?\.?\s*([\d,]+)\s*(k?)\s*(?:to|-)\s*(?:ksh|kes|sh)?\.?\s*([\d,]+)\s*(k?)`)
	budgetSingleRE = regexp.MustCompile(`(?:under|below|maximum|max|up to)\s*(?:ksh|kes|sh)?\.?\s*([\d,]+)\s*(k?)`)
	roomSuffixRE   = regexp.MustCompile(`^\s*(?:bed|br\b|bath)`)

	timelineRE = regexp.MustCompile(`\b(immediately|asap|right away|as soon as possible|next week|next month|this month|end of (?:the )?month|this year|next year|in (?:\d+|a|one|two|three|four|six) (?:days?|weeks?|months?)|by (?:january|february|march|april|may|june|july|august|september|october|november|december))\b`)

	notDecisionMakerRE = regexp.MustCompile(`\b(?:(?:my|our) (?:wife|husband|partner|spouse|boss|family|parents) (?:needs?|has|have|will|must|decides?|wants? to see)|(?:need|have) to (?:check|consult|confirm|talk) with|not (?:just )?my decision)\b`)
	decisionMakerRE    = regexp.MustCompile(`\b(?:i(?:'m| am) the decision maker|i decide|my (?:own )?decision|i make the decisions?)\b`)

	titleCaser = cases.Title(language.English)
)

// Extract pulls structured facts from free text. It never fails: any field
// whose capture cannot be parsed is simply omitted.
func (c *Classifier) Extract(text string) Entities {
	lower := strings.ToLower(text)
	var e Entities

	if m := bedroomsRE.FindStringSubmatch(lower); m != nil {
		if n, ok := parseCount(m[1]); ok {
			e.Bedrooms = &n
		}
	}
	if m := bathroomsRE.FindStringSubmatch(lower); m != nil {
		if n, ok := parseCount(m[1]); ok {
			e.Bathrooms = &n
		}
	}

	e.BudgetMin, e.BudgetMax = extractBudget(lower)

	for _, loc := range c.locations {
		if loc.re.MatchString(lower) {
			name := titleCaser.String(loc.name)
			e.Location = &name
			break
		}
	}

	for _, rule := range c.propertyTypes {
		if rule.re.MatchString(lower) {
			pt := rule.ptype
			e.PropertyType = &pt
			break
		}
	}

	switch {
	case c.rental != nil && c.rental.MatchString(lower):
		tt := TransactionRental
		e.TransactionType = &tt
	case c.sale != nil && c.sale.MatchString(lower):
		tt := TransactionSale
		e.TransactionType = &tt
	}

	if m := timelineRE.FindString(lower); m != "" {
		e.Timeline = &m
	}

	switch {
	case notDecisionMakerRE.MatchString(lower):
		e.DecisionMaker = ptr(false)
	case decisionMakerRE.MatchString(lower):
		e.DecisionMaker = ptr(true)
	}

	return e
}

// extractBudget tries the range form before the single upper bound. Only the
// first form that matches is used; a malformed capture drops the budget.
func extractBudget(lower string) (min *int, max *int) {
	for _, loc := range budgetRangeRE.FindAllStringSubmatchIndex(lower, -1) {
		// "2-3 bedrooms" is a room count, not a price range
		if roomSuffixRE.MatchString(lower[loc[1]:]) {
			continue
		}
		low, okLow := parseAmount(lower[loc[2]:loc[3]])
		high, okHigh := parseAmount(lower[loc[6]:loc[7]])
		if !okLow || !okHigh {
			return nil, nil
		}
		// the thousand marker on either number scales both
		if loc[5] > loc[4] || loc[9] > loc[8] {
			if low > maxThousands || high > maxThousands {
				return nil, nil
			}
			low *= 1000
			high *= 1000
		}
		if low > high {
			return nil, nil
		}
		return &low, &high
	}

	for _, loc := range budgetSingleRE.FindAllStringSubmatchIndex(lower, -1) {
		if roomSuffixRE.MatchString(lower[loc[1]:]) {
			continue
		}
		value, ok := parseAmount(lower[loc[2]:loc[3]])
		if !ok {
			return nil, nil
		}
		if loc[5] > loc[4] {
			if value > maxThousands {
				return nil, nil
			}
			value *= 1000
		}
		return nil, &value
	}
	return nil, nil
}

// maxThousands is the largest "k" amount that still fits in an int once scaled.
const maxThousands = math.MaxInt / 1000

func parseAmount(raw string) (int, bool) {
	digits := strings.ReplaceAll(raw, ",", "")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func parseCount(raw string) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Extract uses the default vocabulary.
func Extract(text string) Entities {
	return defaultClassifier.Extract(text)
}
