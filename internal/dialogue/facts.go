package dialogue

// UserFacts is the accumulated knowledge about one user across a conversation.
// Optional fields are nil until a turn supplies them.
type UserFacts struct {
	UserID          string           `json:"user_id"`
	Location        *string          `json:"location,omitempty"`
	BudgetMin       *int             `json:"budget_min,omitempty"`
	BudgetMax       *int             `json:"budget_max,omitempty"`
	Bedrooms        *int             `json:"bedrooms,omitempty"`
	Bathrooms       *int             `json:"bathrooms,omitempty"`
	PropertyType    *PropertyType    `json:"property_type,omitempty"`
	TransactionType *TransactionType `json:"transaction_type,omitempty"`
	Timeline        *string          `json:"timeline,omitempty"`
	DecisionMaker   bool             `json:"decision_maker"`
	Preferences     map[string]any   `json:"preferences,omitempty"`
}

// NewUserFacts returns facts for a user with the default decision-maker flag set.
func NewUserFacts(userID string) UserFacts {
	return UserFacts{UserID: userID, DecisionMaker: true}
}

// Entities is the partial set of facts extracted from a single message.
type Entities struct {
	Location        *string          `json:"location,omitempty"`
	BudgetMin       *int             `json:"budget_min,omitempty"`
	BudgetMax       *int             `json:"budget_max,omitempty"`
	Bedrooms        *int             `json:"bedrooms,omitempty"`
	Bathrooms       *int             `json:"bathrooms,omitempty"`
	PropertyType    *PropertyType    `json:"property_type,omitempty"`
	TransactionType *TransactionType `json:"transaction_type,omitempty"`
	Timeline        *string          `json:"timeline,omitempty"`
	DecisionMaker   *bool            `json:"decision_maker,omitempty"`
}

// Empty reports whether nothing was extracted.
func (e Entities) Empty() bool {
	return e.Location == nil && e.BudgetMin == nil && e.BudgetMax == nil &&
		e.Bedrooms == nil && e.Bathrooms == nil && e.PropertyType == nil &&
		e.TransactionType == nil && e.Timeline == nil && e.DecisionMaker == nil
}

// Merge folds newly extracted entities into the facts. A field is only
// overwritten when the entity carries a value; known facts are never erased.
func (f *UserFacts) Merge(e Entities) {
	if e.Location != nil {
		f.Location = ptr(*e.Location)
	}
	if e.BudgetMax != nil {
		f.BudgetMax = ptr(*e.BudgetMax)
		if e.BudgetMin != nil {
			f.BudgetMin = ptr(*e.BudgetMin)
		} else if f.BudgetMin != nil && *f.BudgetMin > *e.BudgetMax {
			// a lowered ceiling invalidates an older floor
			f.BudgetMin = nil
		}
	} else if e.BudgetMin != nil && (f.BudgetMax == nil || *e.BudgetMin <= *f.BudgetMax) {
		f.BudgetMin = ptr(*e.BudgetMin)
	}
	if e.Bedrooms != nil {
		f.Bedrooms = ptr(*e.Bedrooms)
	}
	if e.Bathrooms != nil {
		f.Bathrooms = ptr(*e.Bathrooms)
	}
	if e.PropertyType != nil {
		f.PropertyType = ptr(*e.PropertyType)
	}
	if e.TransactionType != nil {
		f.TransactionType = ptr(*e.TransactionType)
	}
	if e.Timeline != nil {
		f.Timeline = ptr(*e.Timeline)
	}
	if e.DecisionMaker != nil {
		f.DecisionMaker = *e.DecisionMaker
	}
}

// MissingInfo lists the required facts not yet known, in asking order.
// It is empty if and only if location, budget_max and property_type are all present.
func (f UserFacts) MissingInfo() []string {
	var missing []string
	for _, name := range requiredFacts {
		if !f.has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (f UserFacts) has(name string) bool {
	switch name {
	case FactLocation:
		return f.Location != nil && *f.Location != ""
	case FactBudgetMax:
		return f.BudgetMax != nil
	case FactPropertyType:
		return f.PropertyType != nil && *f.PropertyType != ""
	}
	return false
}

// Clone returns a deep copy.
func (f UserFacts) Clone() UserFacts {
	out := f
	out.Location = clonePtr(f.Location)
	out.BudgetMin = clonePtr(f.BudgetMin)
	out.BudgetMax = clonePtr(f.BudgetMax)
	out.Bedrooms = clonePtr(f.Bedrooms)
	out.Bathrooms = clonePtr(f.Bathrooms)
	out.PropertyType = clonePtr(f.PropertyType)
	out.TransactionType = clonePtr(f.TransactionType)
	out.Timeline = clonePtr(f.Timeline)
	if f.Preferences != nil {
		out.Preferences = make(map[string]any, len(f.Preferences))
		for k, v := range f.Preferences {
			out.Preferences[k] = v
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
