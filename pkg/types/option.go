package types

// Option metadata keys.
const (
	MetaFlagURL    = "flag_url"
	MetaBranchID   = "branch_id"
	MetaMerchantID = "merchant_id"
)

// Option is one selectable value of a reference or scope picker. Options are
// derived from fetched rows and never persisted.
type Option struct {
	Value    string
	Label    string
	Metadata map[string]string
}

// Meta returns a metadata value ("" when absent).
func (o Option) Meta(key string) string {
	if o.Metadata == nil {
		return ""
	}
	return o.Metadata[key]
}

// FindOption returns the option whose value equals value.
func FindOption(opts []Option, value string) (Option, bool) {
	for _, o := range opts {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}
