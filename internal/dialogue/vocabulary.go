package dialogue

// IntentPatterns maps an intent to the ordered patterns that select it.
type IntentPatterns struct {
	Intent   Intent
	Patterns []string
}

// SignalPatterns maps a buying signal to the ordered patterns that flag it.
type SignalPatterns struct {
	Signal   BuyingSignal
	Patterns []string
}

// PropertyTypeSynonyms maps a canonical category to its keywords.
type PropertyTypeSynonyms struct {
	Type     PropertyType
	Synonyms []string
}

// Vocabulary is the configuration data consulted by the classifier and extractor.
// Slice order is precedence: the first matching entry wins.
// Patterns are RE2 expressions evaluated against lower-cased text.
type Vocabulary struct {
	Intents        []IntentPatterns
	Signals        []SignalPatterns
	PropertyTypes  []PropertyTypeSynonyms
	Locations      []string
	RentalKeywords []string
	SaleKeywords   []string
}

// DefaultVocabulary returns the canonical Nairobi real-estate tables.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Intents: []IntentPatterns{
			{IntentGreeting, []string{
				`\b(hi|hello|hey|greetings|good morning|good afternoon|good evening)\b`,
				`^(hi|hello)[\s!?.]*$`,
			}},
			{IntentPropertySearch, []string{
				`\b(looking for|need|want|search|find)\b.*\b(property|properties|house|apartment|land|home|flat|villa)\b`,
				`\b(buy|rent|purchase|lease)\b`,
				`\b\d+\s*(bed|bedroom|br)s?\b`,
				`\b(under|below|max|maximum)\b.*\b\d+k?\b`,
			}},
			{IntentPropertyDetails, []string{
				`\b(tell me (about|more)|details|information|info)\b.*\b(property|this|that)\b`,
				`\bproperty\s+id\b`,
				`\b(show me|what about|how about)\b.*\b(this|that|the)\b`,
			}},
			{IntentSurveyorRequest, []string{
				`\b(surveyor|valuer|valuation|inspection|inspect|assess\w*|apprais\w*)\b`,
				`\b(property\s+assessment|land\s+survey)\b`,
			}},
			{IntentTenantManagement, []string{
				`\b(tenants?|rent reminder|maintenance request|landlord)\b`,
				`\b(send.*(tenant|reminder)|draft.*response)\b`,
			}},
			{IntentDealClosure, []string{
				`\b(viewing|view|visit|see the property)\b`,
				`\b(book|schedule|arrange|set up)\b.*\b(viewing|appointment|visit)\b`,
				`\b(offer|deposit|paperwork|contract|lease agreement)\b`,
				`\b(negotiat\w*|price|discount|best price)\b`,
				`\bwhen can (i|we)\b`,
			}},
			{IntentGeneralInquiry, []string{
				`\b(how does|what is|can you|do you|tell me about)\b`,
				`\b(process|work|explain)\b`,
			}},
		},
		Signals: []SignalPatterns{
			{SignalViewingRequest, []string{
				`\b(can i see|want to see|schedule (a )?viewing|book (a )?viewing)\b`,
				`\bwhen (can|could) (i|we) (see|view|visit)\b`,
			}},
			{SignalPriceNegotiation, []string{
				`\b(negotiat\w*|best price|discount|lower|flexible)\b.*\bprice\b`,
				`\b(is the price|what about the price)\b`,
			}},
			{SignalTimelineDiscussion, []string{
				`\b(move in|moving|available|when)\b`,
				`\b(next month|this month|soon|immediately)\b`,
			}},
			{SignalPaperworkInquiry, []string{
				`\b(paperwork|documents?|contract|agreement|lease|offer)\b`,
				`\b(what do i need|what documents)\b`,
			}},
			{SignalComparison, []string{
				`\b(compare|versus|vs|or|between)\b.*\b(property|properties)\b`,
				`\b(this one|that one|which one)\b`,
			}},
		},
		PropertyTypes: []PropertyTypeSynonyms{
			// matching is whole-word, so compounds need their own entries
			{PropertyApartment, []string{"apartment", "flat", "penthouse", "studio", "bedsitter"}},
			{PropertyHouse, []string{"house", "home", "bungalow", "townhouse", "maisonette"}},
			{PropertyVilla, []string{"villa"}},
			{PropertyLand, []string{"land", "plot", "farmland", "shamba"}},
			{PropertyCommercial, []string{"commercial", "office", "shop", "warehouse"}},
		},
		Locations: []string{
			"westlands", "kilimani", "kileleshwa", "lavington", "parklands",
			"karen", "runda", "spring valley", "kitisuru", "muthaiga",
			"upperhill", "nairobi cbd", "cbd",
		},
		RentalKeywords: []string{"rent", "rental", "lease", "monthly"},
		SaleKeywords:   []string{"buy", "purchase", "sale", "invest"},
	}
}
