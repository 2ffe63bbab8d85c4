package decision

import "fmt"

// Denial codes understood by the broker.
const (
	CodeForbidden = 403
	CodeInternal  = 500
)

// Denial messages for policy refusals.
const (
	MessagePublishForbidden      = "Publish forbidden"
	MessageSubscriptionForbidden = "Subscription forbidden"
)

// Decision is the outcome of an authorization check: either Allowed or
// Denied. The set is closed.
type Decision interface {
	isDecision()
}

// Allowed grants the request.
type Allowed struct{}

// Denied refuses the request. Temporary marks infrastructure failures the
// broker may retry; policy refusals are never temporary.
type Denied struct {
	Code      int
	Message   string
	Temporary bool
}

func (Allowed) isDecision() {}
func (Denied) isDecision()  {}

func (d Denied) String() string {
	return fmt.Sprintf("denied(%d, %q, temporary=%t)", d.Code, d.Message, d.Temporary)
}

func forbidden(message string) Denied {
	return Denied{Code: CodeForbidden, Message: message, Temporary: false}
}

func internal(err error) Denied {
	return Denied{Code: CodeInternal, Message: err.Error(), Temporary: true}
}
