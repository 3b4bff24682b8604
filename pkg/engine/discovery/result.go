package discovery

// RegionResult records the outcome of listing one region.
type RegionResult struct {
	Region    string `json:"region"`
	Instances int    `json:"instances"`
	Filtered  int    `json:"filtered,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
	Err       error  `json:"-"`
}

// OK reports whether the region was listed without error.
func (r RegionResult) OK() bool { return r.Err == nil }

// AccountResult records the outcome of discovering one account.
type AccountResult struct {
	Account         string         `json:"account"`
	Profile         string         `json:"profile"`
	AccountID       string         `json:"account_id,omitempty"`
	Reason          string         `json:"reason,omitempty"`
	Error           string         `json:"error,omitempty"`
	Err             error          `json:"-"`
	RegionsFallback bool           `json:"regions_fallback,omitempty"`
	Regions         []RegionResult `json:"regions"`
}

// OK reports whether the account and every region in it succeeded.
func (r AccountResult) OK() bool {
	if r.Err != nil {
		return false
	}
	for _, reg := range r.Regions {
		if !reg.OK() {
			return false
		}
	}
	return true
}

// Instances is the number of assets the account contributed.
func (r AccountResult) Instances() int {
	n := 0
	for _, reg := range r.Regions {
		n += reg.Instances
	}
	return n
}

func (r *AccountResult) fail(reason string, err error) {
	r.Reason = reason
	r.Err = err
	r.Error = err.Error()
}

func (r *RegionResult) fail(reason string, err error) {
	r.Reason = reason
	r.Err = err
	r.Error = err.Error()
}
