package types

import "net/url"

// Query parameter names carrying the scope on the navigable location.
const (
	ParamMerchantID = "merchant_id"
	ParamBranchID   = "branch_id"
	ParamCategoryID = "category_id"
)

// ScopeState is the active merchant -> branch -> category selection. Empty
// strings mean "all".
type ScopeState struct {
	MerchantID string
	BranchID   string
	CategoryID string
}

// IsZero reports whether nothing is selected.
func (s ScopeState) IsZero() bool {
	return s.MerchantID == "" && s.BranchID == "" && s.CategoryID == ""
}

// ScopeFromQuery reads the scope from query parameters.
func ScopeFromQuery(q url.Values) ScopeState {
	return ScopeState{
		MerchantID: q.Get(ParamMerchantID),
		BranchID:   q.Get(ParamBranchID),
		CategoryID: q.Get(ParamCategoryID),
	}
}

// Encode writes the scope into a copy of q, deleting empty levels and leaving
// unrelated parameters untouched.
func (s ScopeState) Encode(q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	set := func(key, value string) {
		if value == "" {
			out.Del(key)
			return
		}
		out.Set(key, value)
	}
	set(ParamMerchantID, s.MerchantID)
	set(ParamBranchID, s.BranchID)
	set(ParamCategoryID, s.CategoryID)
	return out
}
