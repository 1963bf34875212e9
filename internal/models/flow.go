package models

// FlowState is the single state value of an activation page
type FlowState int

const (
	StateIdle FlowState = iota
	StateLoading
	StateTokenError
	StateReady
	StateSubmitting
	StateSubmitError
	StateSuccess
)

var flowStateNames = map[FlowState]string{
	StateIdle:        "idle",
	StateLoading:     "loading",
	StateTokenError:  "token_error",
	StateReady:       "ready",
	StateSubmitting:  "submitting",
	StateSubmitError: "submit_error",
	StateSuccess:     "success",
}

func (s FlowState) String() string {
	if name, ok := flowStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Busy reports whether an upstream call is in flight
func (s FlowState) Busy() bool {
	return s == StateLoading || s == StateSubmitting
}

// Flow is everything the activation page knows at one point in time
type Flow struct {
	State       FlowState
	Token       string
	User        *UserInfo
	ExpiresAt   *string
	TokenError  string
	InlineError string
	UserID      string
}

// HasToken reports whether a token was supplied with the page
func (f *Flow) HasToken() bool {
	return f.Token != ""
}

// View is the set of visible page regions derived from a Flow
type View struct {
	Loading         bool
	ShowTokenError  bool
	TokenError      string
	ShowForm        bool
	ShowUserInfo    bool
	FullName        string
	Email           string
	ExpiresAt       string
	ShowInlineError bool
	InlineError     string
	Redirect        string

	// Filled by the page handler from the last submitted password
	Requirements  []RequirementStatus
	Match         MatchIndicator
	EmployeeID    string
	PersonalEmail string
	FlowSession   string
}
